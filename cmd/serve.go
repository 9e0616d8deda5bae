package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/casbridge/casbridge/internal/api"
	"github.com/casbridge/casbridge/internal/audit"
	"github.com/casbridge/casbridge/internal/codec"
	"github.com/casbridge/casbridge/internal/config"
	"github.com/casbridge/casbridge/internal/logging"
	"github.com/casbridge/casbridge/internal/reaper"
	"github.com/casbridge/casbridge/internal/session"
	"github.com/casbridge/casbridge/internal/store"
	"github.com/casbridge/casbridge/internal/tasks"
)

const sweepTaskName = "sweep"

var serveConfigPath string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the casbridge server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveConfigPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		signingKey := cfg.AdminSigningKey
		if signingKey == "" {
			signingKey = os.Getenv("CASBRIDGE_ADMIN_SIGNING_KEY")
		}
		if signingKey == "" {
			return fmt.Errorf("admin_signing_key not configured")
		}

		log.Info().Str("type", cfg.Store.Type).Msg("Initializing store...")
		st, err := store.Build(cfg.Store, codec.JSON{})
		if err != nil {
			return fmt.Errorf("building store: %w", err)
		}

		auditor, err := audit.Build(cfg.Audit)
		if err != nil {
			return fmt.Errorf("building auditor: %w", err)
		}
		defer func() {
			_ = auditor.Close()
		}()

		policy, err := session.CompileLoginPolicy(cfg.LoginPolicy)
		if err != nil {
			return fmt.Errorf("compiling login policy: %w", err)
		}

		sessions := session.NewService(st, policy, auditor)
		rp := reaper.New(st, auditor)

		taskManager := tasks.NewManager()
		defer taskManager.Stop()
		taskManager.Register(sweepTaskName, cfg.Sweep.Interval,
			func(ctx context.Context, logger logging.InternalLogger) error {
				_, err := rp.Sweep(ctx, logger)
				return err
			})

		srv := api.NewServer(sessions, rp, taskManager, auditor)

		addr := cfg.Listen
		if addr == "" {
			addr = ":8080"
		}
		server := &http.Server{
			Addr:    addr,
			Handler: srv.Routes([]byte(signingKey)),
		}

		go func() {
			log.Info().Msgf("Starting server on %s...", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "f", "casbridge.yaml", "server configuration file")
}
