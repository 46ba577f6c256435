// Package serve запускает HTTP-сервер Yatube.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/UkralStul/yatube/cmd/internal/cli"
	"github.com/UkralStul/yatube/internal/app"
	"github.com/UkralStul/yatube/internal/config"
)

const (
	addrFlag    = "addr"
	storageFlag = "storage"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 10 * time.Second

	sessionCleanupInterval = time.Hour
)

var serveFlags = map[string]cobraflags.Flag{
	addrFlag: &cobraflags.StringFlag{
		Name:  addrFlag,
		Value: "",
		Usage: "Address to listen on, overrides HTTP_ADDR",
	},
	storageFlag: &cobraflags.StringFlag{
		Name:  storageFlag,
		Value: "",
		Usage: "Storage backend (memory, postgres, mysql, sqlite), overrides STORAGE",
	},
}

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Yatube web server",
		Long: `Run the Yatube web server.

Configuration comes from the environment and an optional .env file.
With memory storage the server starts with demo users, a group and a few posts.`,
		Args: cobra.NoArgs,
		RunE: serveCommand,
	}
	cobraflags.RegisterMap(cmd, serveFlags)
	return cmd
}

func serveCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := cli.LoadConfig(map[string]string{
		"HTTP_ADDR": serveFlags[addrFlag].GetString(),
		"STORAGE":   serveFlags[storageFlag].GetString(),
	})
	if err != nil {
		return err
	}
	log := app.NewLogger(cfg.Debug)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Initialize(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	if cfg.Storage == config.StorageMemory {
		if err := app.FillWithDemoData(ctx, application.Store, application.Auth, log); err != nil {
			return err
		}
	}
	application.Auth.StartCleanup(ctx, sessionCleanupInterval)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      application.Web.Routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	// Shutdown не ждет websocket-соединения, их закрывает Observer.
	srv.RegisterOnShutdown(application.Live.Close)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server is running", "addr", cfg.Addr, "storage", cfg.Storage, "cache", cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}
