package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edvin/tenantdb/internal/api"
	"github.com/edvin/tenantdb/internal/config"
	"github.com/edvin/tenantdb/internal/core"
	"github.com/edvin/tenantdb/internal/db"
	"github.com/edvin/tenantdb/internal/logging"
	"github.com/edvin/tenantdb/internal/metrics"
	"github.com/edvin/tenantdb/internal/tenantfile"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "create-account":
			createAccount(os.Args[2:])
			return
		case "reset-query-counts":
			resetQueryCounts(os.Args[2:])
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	metaDB, err := db.Open(cfg.MetadataDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open metadata database")
	}
	defer metaDB.Close()

	if err := db.Migrate(metaDB); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	registry, err := tenantfile.NewRegistry(cfg.DatabasesDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare databases directory")
	}
	defer registry.Close()

	metrics.RegisterOpenHandles(registry.OpenHandles)

	srv := api.NewServer(logger, metaDB, registry, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting tenantdb API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

// openServices connects to the metadata database for a one-shot CLI command.
func openServices() (*core.Services, func()) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	metaDB, err := db.Open(cfg.MetadataDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open metadata database: %v\n", err)
		os.Exit(1)
	}

	if err := db.Migrate(metaDB); err != nil {
		metaDB.Close()
		fmt.Fprintf(os.Stderr, "error: migration failed: %v\n", err)
		os.Exit(1)
	}

	registry, err := tenantfile.NewRegistry(cfg.DatabasesDir, logger)
	if err != nil {
		metaDB.Close()
		fmt.Fprintf(os.Stderr, "error: failed to prepare databases directory: %v\n", err)
		os.Exit(1)
	}

	cleanup := func() {
		registry.Close()
		metaDB.Close()
	}
	return core.NewServices(metaDB, registry, cfg, logger), cleanup
}

func createAccount(args []string) {
	fs := flag.NewFlagSet("create-account", flag.ExitOnError)
	name := fs.String("name", "", "Account name (required)")
	email := fs.String("email", "", "Account email (required)")
	fs.Parse(args)

	if *name == "" || *email == "" {
		fmt.Fprintln(os.Stderr, "error: --name and --email are required")
		fmt.Fprintln(os.Stderr, "usage: tenantdb-api create-account --name <name> --email <email>")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	services, cleanup := openServices()
	defer cleanup()

	account, err := services.Auth.CreateAccount(ctx, *name, *email, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create account: %v\n", err)
		os.Exit(1)
	}

	key, err := services.Auth.CreateAPIKey(ctx, account.ID, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Account created successfully.\n\n")
	fmt.Printf("  Name:    %s\n", account.Name)
	fmt.Printf("  Email:   %s\n", account.Email)
	fmt.Printf("  ID:      %s\n", account.ID)
	fmt.Printf("  API key: %s\n\n", key.Key)
	fmt.Printf("Save this key, it will not be shown again.\n")
}

// resetQueryCounts zeroes every database's hourly query counter. Meant to be
// invoked from cron once per hour.
func resetQueryCounts(args []string) {
	fs := flag.NewFlagSet("reset-query-counts", flag.ExitOnError)
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	services, cleanup := openServices()
	defer cleanup()

	if err := services.Quota.ResetHourlyCounters(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to reset query counters: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Hourly query counters reset.")
}
