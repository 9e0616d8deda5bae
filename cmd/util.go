package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/casbridge/casbridge/internal/cliconfig"
	"github.com/casbridge/casbridge/pkg/client"
)

var (
	greenCheck = color.GreenString("✓")
	redCross   = color.RedString("✗")

	bold  = color.New(color.Bold).Sprint
	faint = color.New(color.Faint).Sprint
)

// BeQuietError signals that the error has already been presented to the
// user and the root command should not log it again.
type BeQuietError struct{}

func (BeQuietError) Error() string {
	return "exiting"
}

func logError(err error, correlation, msg string) error {
	if correlation != "" {
		log.Error().Msgf("%s %s (correlation ID: %s)", redCross, msg, correlation)
	} else {
		log.Error().Msgf("%s %s", redCross, msg)
	}
	log.Error().Msgf("error: %v", err)
	return BeQuietError{}
}

func logSuccess(format string, args ...any) {
	log.Info().Msgf("%s %s", greenCheck, fmt.Sprintf(format, args...))
}

func applyTableFormat(t table.Writer) {
	t.SetStyle(table.StyleLight)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// getClient returns an authenticated HTTP client for remote operations.
// The admin token is taken from CASBRIDGE_TOKEN if set, otherwise from
// the credential saved by `casbridge login`.
func getClient() (*client.Client, error) {
	server := viper.GetString(ServerAddrKey)
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set CASBRIDGE_ADDR)")
	}

	var token string
	if cfg, err := cliconfig.Load(); err == nil {
		if cred, err := cfg.GetCredential(server); err == nil {
			token = cred.Token
		} else if !errors.Is(err, cliconfig.ErrCredentialNotFound) {
			return nil, err
		}
	}

	if envToken := os.Getenv("CASBRIDGE_TOKEN"); envToken != "" {
		token = envToken
	}

	return client.New(server, client.WithAuthToken(token)), nil
}
