package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/casbridge/casbridge/internal/cliconfig"
)

var (
	loginSubject string
	loginTTL     time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Mint an admin token and save it for future requests",
	Long: `Mints an HMAC-signed admin JWT from the server's admin signing key and
saves it locally, so that admin commands (sweep, sessions, audits, tasks)
can authenticate. The signing key is read from CASBRIDGE_ADMIN_SIGNING_KEY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := viper.GetString(ServerAddrKey)
		if server == "" {
			return fmt.Errorf("server address not configured (use --server or set CASBRIDGE_ADDR)")
		}

		signingKey := os.Getenv("CASBRIDGE_ADMIN_SIGNING_KEY")
		if signingKey == "" {
			return fmt.Errorf("CASBRIDGE_ADMIN_SIGNING_KEY is not set")
		}

		subject := loginSubject
		if subject == "" {
			if u, err := user.Current(); err == nil {
				subject = u.Username
			} else {
				subject = "admin"
			}
		}

		now := time.Now()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":   subject,
			"roles": []string{"admin"},
			"iat":   now.Unix(),
			"exp":   now.Add(loginTTL).Unix(),
		})
		signed, err := token.SignedString([]byte(signingKey))
		if err != nil {
			return fmt.Errorf("signing admin token: %w", err)
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg = &cliconfig.CLIConfig{}
		}
		if err := cfg.SetCredential(server, signed); err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return logError(err, "", "minted token but could not save credentials")
		}

		logSuccess("saved admin credentials for %s (valid for %s)", bold(server), loginTTL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&loginSubject, "subject", "", "Subject claim of the minted token (default: current user)")
	loginCmd.Flags().DurationVar(&loginTTL, "ttl", 24*time.Hour, "Lifetime of the minted token")
}
