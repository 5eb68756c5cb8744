package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"chartly/internal/app"
	"chartly/internal/config"
	internaldb "chartly/internal/db"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "chartly",
		Short:         "Query execution service for dashboard charts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	metaWriteDB, metaReadDB, err := internaldb.OpenSQLitePair(cfg.MetaDBPath, 0)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer metaWriteDB.Close()
	defer metaReadDB.Close()

	if err := internaldb.RunMigrations(metaWriteDB); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	warehouseDB, err := internaldb.OpenSQLite(cfg.WarehousePath, "write", 0)
	if err != nil {
		return fmt.Errorf("open warehouse: %w", err)
	}
	defer warehouseDB.Close()

	application, err := app.New(app.Deps{
		Cfg:         cfg,
		MetaWriteDB: metaWriteDB,
		MetaReadDB:  metaReadDB,
		WarehouseDB: warehouseDB,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}

	if err := application.Scheduler.Start(cfg.WarmSchedule); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer application.Scheduler.Stop()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.ListenAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newLogger builds the process logger: JSON in production, text elsewhere.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
