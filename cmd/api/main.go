package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/melusc/initiative-tracker/internal/app"
	"github.com/melusc/initiative-tracker/internal/assets"
	"github.com/melusc/initiative-tracker/internal/config"
	"github.com/melusc/initiative-tracker/internal/domain"
	"github.com/melusc/initiative-tracker/internal/obs"
	"github.com/melusc/initiative-tracker/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	root := &cobra.Command{
		Use:           "initiative-tracker",
		Short:         "Self-hosted tracker for political initiatives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newCreateLoginCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// setup opens the database, applies migrations and builds the domain
// layer. Shared by every subcommand.
func setup(ctx context.Context, cfg config.Config) (*store.PostgresStore, *domain.Repositories, *assets.Store, error) {
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := store.ApplyMigrations(ctx, db, cfg.StateDir, store.Migrations()); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("migrations failed: %w", err)
	}

	files, err := assets.NewStore(cfg.AssetDir, cfg.MaxUploadBytes, cfg.FetchTimeout)
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("asset store init failed: %w", err)
	}

	dataStore := store.NewPostgresStore(db)
	repos := domain.New(dataStore, files, cfg)
	return dataStore, repos, files, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.Load()

			dataStore, repos, files, err := setup(ctx, cfg)
			if err != nil {
				return err
			}
			defer dataStore.DB().Close()

			if n, err := repos.Sessions.RemoveExpired(ctx); err != nil {
				log.Warn().Err(err).Msg("expired session sweep failed")
			} else if n > 0 {
				log.Info().Int64("count", n).Msg("swept expired sessions")
			}

			obs.Init()
			httpServer := app.NewServer(repos, files, dataStore.DB(), cfg)
			server := &http.Server{
				Addr:              cfg.Addr,
				Handler:           httpServer.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.Addr).Msg("listening")
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				log.Info().Str("signal", sig.String()).Msg("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("shutdown error")
			}
			return nil
		},
	}
}

func newCreateLoginCmd() *cobra.Command {
	var username string
	var admin bool

	cmd := &cobra.Command{
		Use:   "create-login",
		Short: "Create an account, prompting for the password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.Load()

			dataStore, repos, _, err := setup(ctx, cfg)
			if err != nil {
				return err
			}
			defer dataStore.DB().Close()

			password, err := promptPassword()
			if err != nil {
				return err
			}

			login, err := repos.Logins.Create(ctx, username, password, admin)
			if err != nil {
				return err
			}
			fmt.Printf("created login %s (%s)\n", login.Username(), login.ID())
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username for the new account")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant admin access")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Repeat password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(password), nil
}
