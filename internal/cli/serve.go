package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lazypower/rote/internal/config"
	"github.com/lazypower/rote/internal/scheduler"
	"github.com/lazypower/rote/internal/server"
	"github.com/lazypower/rote/internal/store"
	"github.com/spf13/cobra"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config file (default ~/.rote/config.toml)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveConfigPath == "" {
		serveConfigPath = os.Getenv("ROTE_CONFIG")
	}
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}

	params, err := cfg.SchedulerParams()
	if err != nil {
		return fmt.Errorf("scheduler config: %w", err)
	}

	// Resolve database path: flag/config, then ROTE_DB, then default.
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = os.Getenv("ROTE_DB")
	}
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sched := scheduler.New(db, params)
	srv := server.New(db, sched, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "rote serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
