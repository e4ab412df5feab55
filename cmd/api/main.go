package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studio_sales_backend/internal/bootstrap"
	apphttp "studio_sales_backend/internal/http"
	"studio_sales_backend/internal/http/router"
	"studio_sales_backend/internal/payments"
	"studio_sales_backend/internal/scheduler"
	"studio_sales_backend/platform/config"
	"studio_sales_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure + Domain (Composition Root)
	// ========================================================================

	rt, err := bootstrap.Build(ctx, cfg, log, bootstrap.Options{Migrate: true, EnqueueSweeps: true})
	if err != nil {
		log.Error("failed to initialize runtime", "error", err)
		panic("failed to initialize runtime: " + err.Error())
	}
	defer rt.Close()

	modules := []apphttp.Module{rt.Leads, rt.Appointments}
	if cfg.IsPaymentsEnabled() {
		modules = append(modules, payments.NewWebhookModule(cfg.GetStripeWebhookSecret(), rt.Leads.Router(), log))
	}

	// Without Redis there is no worker process to run the sweep, so the api
	// runs it in-process.
	if !cfg.IsRedisEnabled() {
		go scheduler.NewTickerSweep(rt.Leads.Holds(), cfg.GetHoldSweepInterval(), log).Run(ctx)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   rt.Pool,
		EventBus: rt.Bus,
		Modules:  modules,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		rt.Bus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}
