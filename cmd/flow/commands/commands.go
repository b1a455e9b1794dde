package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kylrix/flow/internal/infrastructure/config"
	"github.com/kylrix/flow/internal/infrastructure/localdata"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Flow client server",
		Long:  "Start the Flow client server: UI endpoints, session handling and the backend bridge",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewStateCommand creates the device-local state command
func NewStateCommand() *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect device-local state",
		Long:  "Read, write and clear keys in the device-local store (read flags, preferences, the PIN hash)",
	}

	stateCmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a stored value",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withLocalStore(func(store *localdata.Store) error {
				value, ok, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("key %q not set", args[0])
				}
				fmt.Println(value)
				return nil
			})
		},
	})

	stateCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			withLocalStore(func(store *localdata.Store) error {
				return store.Set(cmd.Context(), args[0], args[1])
			})
		},
	})

	stateCmd.AddCommand(&cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a value",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withLocalStore(func(store *localdata.Store) error {
				return store.Delete(cmd.Context(), args[0])
			})
		},
	})

	return stateCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Flow version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Flow v1.0.0")
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	local, err := localdata.Open(cfg.LocalData)
	if err != nil {
		appLogger.Fatalw("Failed to open device-local store", "error", err)
	}
	defer local.Close()

	srv, err := server.New(cfg, local, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	// Establish the session state before accepting traffic; a failed
	// bootstrap just means starting signed out.
	bootstrapCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	srv.Bootstrap(bootstrapCtx)
	cancel()

	appLogger.Infow("Starting Flow client server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"backend", cfg.Backend.Endpoint,
	)

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			appLogger.Infow("Server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorw("Shutdown failed", "error", err)
	}
}

func withLocalStore(fn func(store *localdata.Store) error) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := localdata.Open(cfg.LocalData)
	if err != nil {
		log.Fatalf("Failed to open device-local store: %v", err)
	}
	defer store.Close()

	if err := fn(store); err != nil {
		log.Fatal(err)
	}
}
