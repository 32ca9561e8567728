package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "secretshare",
	Short: "Password-protected, self-expiring secret sharing.",
	Long: `secretshare stores encrypted text and files behind a password and
releases them only until their time or view budget runs out.

Usage:
  secretshare <command> [flags]

Available Commands:
  serve    Run the HTTP API
  sweep    Mark time-expired secrets and purge old ones
  list     List stored secrets and their expiry status
`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML or TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
