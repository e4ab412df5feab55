package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"studio_sales_backend/internal/bootstrap"
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
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Build(ctx, cfg, log, bootstrap.Options{})
	if err != nil {
		log.Error("failed to initialize runtime", "error", err)
		panic("failed to initialize runtime: " + err.Error())
	}
	defer rt.Close()

	if !cfg.IsRedisEnabled() {
		log.Warn("REDIS_URL not configured; running hold sweep on a local ticker")
		scheduler.NewTickerSweep(rt.Leads.Holds(), cfg.GetHoldSweepInterval(), log).Run(ctx)
		return
	}

	worker, err := scheduler.NewWorker(cfg, rt.Leads.Holds(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}
	if err := worker.Run(ctx); err != nil {
		log.Error("scheduler worker stopped", "error", err)
	}
	rt.Bus.Wait()
}
