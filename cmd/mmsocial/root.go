package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ageniuscoder/mmsocial/backend/internal/config"
	"github.com/ageniuscoder/mmsocial/backend/internal/logging"
	"github.com/ageniuscoder/mmsocial/backend/internal/server"
	"github.com/ageniuscoder/mmsocial/backend/internal/storage"
	"github.com/ageniuscoder/mmsocial/backend/internal/storage/postgres"
	"github.com/ageniuscoder/mmsocial/backend/internal/storage/sqlite"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

type rootOptions struct {
	ConfigPath string
	EnvFile    string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "mmsocial",
		Short:         "Direct messaging backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "optional YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), opts)
		},
	})
	return cmd
}

func loadConfig(opts *rootOptions) (config.Config, *slog.Logger, error) {
	envErr := godotenv.Load(opts.EnvFile)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil {
		logger.Warn("env file not loaded", "path", opts.EnvFile, "error", envErr)
	}
	return cfg, logger, nil
}

type database interface {
	Migrate(ctx context.Context) error
	Close() error
}

func openDatabase(cfg config.StorageConfig) (*storage.DB, database, error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := postgres.New(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg.DB, pg, nil
	default:
		lite, err := sqlite.New(cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		return lite.DB, lite, nil
	}
}

func runMigrate(ctx context.Context, opts *rootOptions) error {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}
	_, db, err := openDatabase(cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("migration completed", "driver", cfg.Storage.Driver)
	return nil
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}

	conn, db, err := openDatabase(cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	printBanner(cfg)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(cfg, conn, logger).Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting mmsocial", "addr", cfg.Server.Addr, "driver", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func printBanner(cfg config.Config) {
	if cfg.Logging.Format == "json" {
		return
	}
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	cyan.Fprintln(os.Stdout, "\n    mmsocial")
	green.Fprint(os.Stdout, "    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.Addr)
	green.Fprint(os.Stdout, "    ▶ ")
	fmt.Printf("Storage:   %s\n\n", cfg.Storage.Driver)
}
