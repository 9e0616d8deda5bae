package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var logoutNameID string

var logoutCmd = &cobra.Command{
	Use:   "logout TICKET",
	Short: "Send a back-channel logout for an SSO ticket",
	Long: `Sends the server the same SAML LogoutRequest a CAS server would post on
single logout, invalidating the token issued for the given ticket.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticketID := args[0]
		if ticketID == "" {
			return fmt.Errorf("ticket id cannot be empty")
		}

		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Sending back-channel logout for ticket '%s'...", ticketID)
		tokenID, correlation, err := cli.BackchannelLogout(cmd.Context(), ticketID, logoutNameID)
		if err != nil {
			return logError(err, correlation, "logout failed")
		}

		if tokenID == "" {
			log.Info().Msgf("ticket '%s' is not tracked, nothing to invalidate", ticketID)
			return nil
		}
		logSuccess("invalidated token %s", bold(tokenID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)

	logoutCmd.Flags().StringVar(&logoutNameID, "name-id", "", "NameID to carry in the logout request (optional)")
}
