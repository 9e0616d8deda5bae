package cmd

import (
	"github.com/spf13/cobra"

	"github.com/casbridge/casbridge/internal/config"
)

var validateConfigPath string

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the server configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(validateConfigPath)
		if err != nil {
			return logError(err, "", "configuration is invalid")
		}
		logSuccess("configuration is valid (store: %s)", bold(cfg.Store.Type))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)

	configValidateCmd.Flags().StringVarP(&validateConfigPath, "config", "f", "casbridge.yaml", "server configuration file")
}
