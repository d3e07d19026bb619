package cmd

import (
	"github.com/spf13/cobra"
)

// configCmd prints the effective configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the effective configuration",
	Long: `Display the effective configuration after defaults, the config file
and REACTZ_* environment variables were applied.

Examples:
  reactz config
  REACTZ_DEBOUNCE_DURATION=1s reactz config
  reactz config --config ./pipeline.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}
