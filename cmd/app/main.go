package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"auction_go/internal/app"
	"auction_go/internal/infra"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// Pprof server, localhost only
	go func() {
		slog.Info("pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("pprof server failed", slog.Any("error", err))
		}
	}()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go bootstrap.Scheduler.Run(ctx)
	go bootstrap.Hub.Run(ctx)

	if err := bootstrap.RecoverActiveAuctions(ctx); err != nil {
		slog.Error("recovery failed", slog.Any("error", err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", bootstrap.Hub.ServeWS)
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(infra.GlobalMetrics.Snapshot())
	})

	srv := &http.Server{Addr: bootstrap.Config.Server.ListenAddr, Handler: mux}
	go func() {
		slog.Info("notification gateway listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("gateway server failed", slog.Any("error", err))
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down gracefully...")
	srv.Shutdown(context.Background())
}
