package commands

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/marmos91/mtpd/internal/cli/output"
	"github.com/marmos91/mtpd/internal/config"
	"github.com/spf13/cobra"
)

var (
	statusOutput  string
	statusPidFile string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show responder status",
	Long: `Display the current status of the mtpd responder.

Checks the PID file recorded by daemon-mode 'mtpd start' and, when a
metrics endpoint is configured, confirms it is answering requests.

Examples:
  # Check status
  mtpd status

  # Output as JSON
  mtpd status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/mtpd/mtpd.pid)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// Status represents the responder's reported status.
type Status struct {
	Running bool   `json:"running" yaml:"running"`
	PID     int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Message string `json:"message" yaml:"message"`
	Metrics bool   `json:"metrics_reachable,omitempty" yaml:"metrics_reachable,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := Status{Message: "mtpd is not running"}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	if pidData, err := os.ReadFile(pidPath); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(pidData))); err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					status.Running = true
					status.PID = pid
					status.Message = "mtpd is running"
				}
			}
		}
	}

	if status.Running {
		if cfg, err := config.Load(GetConfigFile()); err == nil && cfg.Metrics.Enabled {
			status.Metrics = checkMetricsEndpoint(cfg.Metrics.Addr)
		}
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}
	return nil
}

func checkMetricsEndpoint(addr string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/metrics", addr))
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

func printStatusTable(status Status) {
	fmt.Println()
	fmt.Println("mtpd Responder Status")
	fmt.Println("======================")
	fmt.Println()
	if status.Running {
		fmt.Printf("  Status:   \033[32m● Running\033[0m\n")
		fmt.Printf("  PID:      %d\n", status.PID)
		if status.Metrics {
			fmt.Printf("  Metrics:  \033[32mreachable\033[0m\n")
		}
	} else {
		fmt.Printf("  Status:   \033[31m○ Stopped\033[0m\n")
	}
	fmt.Println()
}
