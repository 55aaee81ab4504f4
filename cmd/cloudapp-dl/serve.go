package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourusername/cloudapp-dl-go/api"
	"github.com/yourusername/cloudapp-dl-go/api/handlers"
	"github.com/yourusername/cloudapp-dl-go/internal/app"
	"github.com/yourusername/cloudapp-dl-go/pkg/logger"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

var (
	serveHost string
	servePort int
	serveCmd  = &cobra.Command{
		Use:   "serve",
		Short: "Run the download queue behind an HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.repo == nil {
		return errors.New("server mode needs the download history, check history.enabled and history.database_path")
	}

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   rt.config.Logging.Level,
		LogsDir: rt.config.Logging.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize category logs: %w", err)
	}
	defer multiLog.Close()

	rt.downloads.SetMultiLogger(multiLog)
	queueMgr := app.NewQueueManager(rt.repo, rt.downloads, &rt.config.Queue, multiLog)

	host, port := rt.config.Server.Host, rt.config.Server.Port
	if serveHost != "" {
		host = serveHost
	}
	if servePort != 0 {
		port = servePort
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	log := rt.log
	log.Info("Starting cloudapp-dl server",
		zap.String("version", handlers.Version),
		zap.String("addr", addr),
		zap.String("output_dir", rt.config.Download.OutputDir),
		zap.String("logs_dir", rt.config.Logging.LogsDir))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := queueMgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start queue manager: %w", err)
	}

	server := &http.Server{
		Addr:    addr,
		Handler: api.SetupRouter(queueMgr, rt.downloads, log, multiLog, rt.config.Logging.LogsDir),
	}

	serveErr := listenUntilDone(ctx, server, log)

	if err := queueMgr.Stop(); err != nil {
		log.Error("Error stopping queue manager", zap.Error(err))
	}

	log.Info("Server exited")
	return serveErr
}

// listenUntilDone serves HTTP until ctx is done, then shuts the server down.
// A failure to listen is returned.
func listenUntilDone(ctx context.Context, server *http.Server, log *zap.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var listenErr error
	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
			listenErr = fmt.Errorf("http server on %s: %w", server.Addr, err)
		}
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	return listenErr
}
