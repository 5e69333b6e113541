package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/coopfs/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the coopfs configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  coopfs config validate

  # Validate specific config file
  coopfs config validate --config /etc/coopfs/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	// Load and validate configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Determine path for display
	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	// Additional validation checks
	var warnings []string

	// A lease that expires within two renewal cycles gets declared
	// abandoned after a single missed renewal
	if cfg.Lock.ExpirationTimeout > 0 && cfg.Lock.ExpirationTimeout < 2*cfg.Lock.RenewalPeriod {
		warnings = append(warnings, "expiration_timeout leaves less than two renewal cycles of slack - one slow renewal makes live operations repairable")
	}

	// Check S3 static credentials come in pairs
	if (cfg.Store.S3.AccessKeyID == "") != (cfg.Store.S3.SecretAccessKey == "") {
		warnings = append(warnings, "S3 access key and secret must be set together - the default AWS credential chain will be used instead")
	}

	// Print results
	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Lock directory:      %s\n", cfg.Lock.Dir)
	fmt.Printf("  Renewal period:      %s\n", cfg.Lock.RenewalPeriod)
	fmt.Printf("  Expiration timeout:  %s\n", cfg.Lock.ExpirationTimeout)
	fmt.Printf("  Log level:           %s\n", cfg.Logging.Level)

	return nil
}
