package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/cheese-chess-server/internal/chessbuilder"
	appcfg "github.com/park285/cheese-chess-server/internal/config"
	"github.com/park285/cheese-chess-server/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	deps, err := chessbuilder.New(cfg, logger)
	if err != nil {
		logger.Fatal("chess_init_error", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           deps.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listening", zap.String("addr", srv.Addr), zap.String("store", deps.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server_error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	// Shutdown does not wait for hijacked WebSocket conns; closing the store
	// afterwards makes their pending writes fail fast.
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown_incomplete", zap.Error(err))
	}
	if err := deps.Close(); err != nil {
		logger.Warn("store_close_failed", zap.Error(err))
	}
}
