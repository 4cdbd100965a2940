package commands

import (
	"fmt"

	"github.com/marmos91/mtpd/internal/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample mtpd configuration file.

By default, the configuration file is created at
$XDG_CONFIG_HOME/mtpd/config.yaml. Use --config to specify a custom path.

Examples:
  # Initialize with default location
  mtpd init

  # Initialize with custom path
  mtpd init --config /etc/mtpd/config.yaml

  # Force overwrite existing config
  mtpd init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error
	if configFile != "" {
		configPath, err = config.InitConfigToPath(configFile, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to set your storage roots")
	fmt.Println("  2. Start the responder with: mtpd start")
	fmt.Printf("  3. Or specify custom config: mtpd start --config %s\n", configPath)
	return nil
}
