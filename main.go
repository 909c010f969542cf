package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heypicture/heypicture/internal/config"
	"github.com/heypicture/heypicture/internal/handler"
	"github.com/heypicture/heypicture/internal/inject"
	"github.com/heypicture/heypicture/internal/log"
	"github.com/samber/do"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stderr, cfg.Debug)
	ctx := log.NewContext(context.Background(), logger)

	injector := inject.Setup(ctx, cfg)
	handler := do.MustInvoke[*handler.Handler](injector)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler.Router(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	_ = injector.Shutdown()
}
