package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/casbridge/casbridge/internal/core"
)

var validateCmd = &cobra.Command{
	Use:   "validate TOKEN",
	Short: "Check whether a token is still acceptable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenID := args[0]
		if tokenID == "" {
			return fmt.Errorf("token id cannot be empty")
		}

		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Checking validity of token '%s'...", tokenID)
		verdict, correlation, err := cli.Validate(cmd.Context(), tokenID)
		if err != nil {
			return logError(err, correlation, "validity check failed")
		}

		switch verdict {
		case core.ValidityValid:
			log.Info().Msgf("%s token is %s", greenCheck, color.GreenString("valid"))
		case core.ValidityInvalidated:
			log.Info().Msgf("%s token is %s", redCross, color.RedString("invalidated"))
		default:
			log.Info().Msgf("token is %s (not tracked or already reclaimed)", faint("unknown"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
