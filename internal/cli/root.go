package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "kafbench",
	Short:   "A Kafka producer load-generation and benchmarking tool",
	Version: version,
	Long: `Kafbench drives repeated asynchronous record production against a Kafka
cluster and reports throughput and per-unit latency. Records can be sent
individually or grouped into all-or-nothing transactions, pinned to a
partition or spread by the client's partitioner.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print help
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(runCmd)
}
