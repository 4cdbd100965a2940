// Command mtpd is a userspace MTP responder: it drives a FunctionFS USB
// gadget function, serving one or more filesystem roots to a connected
// host over the Media Transfer Protocol (spec.md §1).
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/mtpd/cmd/mtpd/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
