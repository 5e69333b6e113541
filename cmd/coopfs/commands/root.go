// Package commands implements the CLI commands for coopfs.
package commands

import (
	"github.com/marmos91/coopfs/cmd/coopfs/commands/config"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "coopfs",
	Short: "Crash-safe directory operations for object stores",
	Long: `Coopfs runs multi-object directory operations (recursive rename and
recursive delete) against object store buckets that only guarantee
per-object atomicity. Every operation writes a journal to the bucket's
lock directory before mutating anything, so a crashed or interrupted run
leaves enough state behind for 'coopfs fsck' to finish or undo it later.

Buckets are addressed by URI: gs://bucket, s3://bucket or mem://name.

Use "coopfs [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/coopfs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(fsckCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
