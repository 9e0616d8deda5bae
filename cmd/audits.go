package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/casbridge/casbridge/pkg/client"
)

var auditsOpts client.ListAuditsOpts

var auditsCmd = &cobra.Command{
	Use:   "audits",
	Short: "Retrieve and display audit log entries",
	Long:  `Lists the latest audit entries recorded by the server. Requires admin credentials (casbridge login).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Fetching audit log...")
		audits, correlation, err := cli.ListAudits(cmd.Context(), auditsOpts)
		if err != nil {
			return logError(err, correlation, "failed to fetch audit log")
		}

		log.Info().Msgf("Retrieved %d audit entries", len(audits))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "Action", "Ticket", "Token", "Subject", "OK", "Error"})

		for _, e := range audits {
			status := greenCheck
			if !e.Success {
				status = redCross
			}

			t.AppendRow(table.Row{
				e.Time.Format(time.RFC3339),
				e.Action,
				truncate(e.TicketID, 25),
				truncate(e.TokenID, 25),
				e.Subject,
				status,
				e.Error,
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditsCmd)

	auditsCmd.Flags().UintVarP(&auditsOpts.Limit, "limit", "n", 25, "Number of audit entries to retrieve")
	auditsCmd.Flags().StringVar(&auditsOpts.CorrelationID, "correlation-id", "", "Filter by correlation ID")
	auditsCmd.Flags().StringVar(&auditsOpts.TicketID, "ticket", "", "Filter by ticket ID")
	auditsCmd.Flags().StringVar(&auditsOpts.TokenID, "token", "", "Filter by token ID")
}
