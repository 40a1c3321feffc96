package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/fairyhunter13/pantry-inventory-service/internal/http"
	"github.com/fairyhunter13/pantry-inventory-service/internal/obs"
	"github.com/fairyhunter13/pantry-inventory-service/internal/store"
	"github.com/spf13/cobra"
)

func serveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(g)
		},
	}
}

func serve(g *globalFlags) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	obs.Logger.Info("service_starting", "version", Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	obs.Logger.Info("catalog_loaded", "classes", d.catalog.Len(), "constraints_path", d.store.Path())

	watchDone := make(chan struct{})
	if cfg.WatchConstraints {
		w, err := store.NewWatcher(d.store.Path(), d.store, 0)
		if err != nil {
			return err
		}
		go func() {
			defer close(watchDone)
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				obs.Logger.Error("constraints_watch_error", "error", err)
			}
		}()
	} else {
		close(watchDone)
	}

	app := httpapi.NewApp(cfg, d.reconciler)
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.SnapshotTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	select {
	case s := <-sigc:
		obs.Logger.Info("shutdown_signal", "signal", s.String())
	case err := <-errc:
		obs.Logger.Error("http_server_error", "error", err)
		return err
	}

	app.StartShutdown()
	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	cancel()
	<-watchDone
	obs.Logger.Info("service_stopped")
	return nil
}
