package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Trigger a reclamation pass on the server",
	Long: `Asks the server to remove expired token records and the ticket entries
pointing at them. Requires admin credentials (casbridge login).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Triggering sweep...")
		removed, correlation, err := cli.Sweep(cmd.Context())
		if err != nil {
			return logError(err, correlation, "sweep failed")
		}

		logSuccess("sweep removed %d entries", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
