package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/coopfs/internal/cli/output"
	"github.com/marmos91/coopfs/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the coopfs configuration after defaults, the config file and
environment overrides have been applied.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show effective config as YAML
  coopfs config show

  # Show as JSON
  coopfs config show --output json

  # Show a specific config file
  coopfs config show --config /etc/coopfs/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	default:
		return output.PrintYAML(os.Stdout, cfg)
	}
}
