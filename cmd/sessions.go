package cmd

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"ls"},
	Short:   "List tracked sessions on the server",
	Long:    `Lists every token record the server currently tracks. Requires admin credentials (casbridge login).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving sessions...")
		records, correlation, err := cli.ListSessions(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to list sessions")
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Token", "Subject", "Expires", "State"})

		now := time.Now()
		for _, record := range records {
			state := color.GreenString("valid")
			if record.Invalid {
				state = color.RedString("invalidated")
			} else if record.Expired(now) {
				state = color.New(color.Faint).Sprint("expired")
			}

			t.AppendRow(table.Row{
				truncate(record.TokenID, 35),
				record.Subject,
				record.ExpiresAt.Format(time.RFC3339),
				state,
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}
