package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// dumpFile is the path to the diagnostics dump file written by gobfd on
	// SIGUSR1. session list/show read this file.
	dumpFile string

	// eventSocket is the path to the local consumer event IPC socket that
	// gobfd writes session state-change events to.
	eventSocket string
)

// rootCmd is the top-level cobra command for gobfdctl.
var rootCmd = &cobra.Command{
	Use:   "gobfdctl",
	Short: "CLI client for the gobfd daemon",
	Long:  "gobfdctl inspects a running gobfd daemon through its diagnostics dump file and consumer event socket.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dumpFile, "dump-file", "/var/run/gobfd/sessions.dump",
		"path to the gobfd diagnostics dump file")
	rootCmd.PersistentFlags().StringVar(&eventSocket, "socket", "/var/run/gobfd/events.sock",
		"path to the gobfd consumer event socket")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
