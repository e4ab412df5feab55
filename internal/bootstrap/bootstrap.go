// Package bootstrap builds the shared runtime used by the api and scheduler
// binaries: database, Redis, roster, collaborators and the leads engine.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio_sales_backend/internal/appointments"
	"studio_sales_backend/internal/email"
	"studio_sales_backend/internal/events"
	"studio_sales_backend/internal/leads"
	"studio_sales_backend/internal/leads/agent"
	"studio_sales_backend/internal/leads/locker"
	"studio_sales_backend/internal/messaging"
	"studio_sales_backend/internal/notification"
	"studio_sales_backend/internal/payments"
	"studio_sales_backend/internal/scheduler"
	"studio_sales_backend/internal/studio"
	"studio_sales_backend/internal/whatsapp"
	"studio_sales_backend/migrations"
	"studio_sales_backend/platform/config"
	"studio_sales_backend/platform/db"
	"studio_sales_backend/platform/logger"
	"studio_sales_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options toggles per-binary behavior.
type Options struct {
	// Migrate applies pending schema migrations before connecting.
	Migrate bool
	// EnqueueSweeps lets admin-triggered sweeps go through the asynq queue.
	EnqueueSweeps bool
}

// Runtime holds everything both binaries share.
type Runtime struct {
	Pool         *pgxpool.Pool
	Bus          *events.InMemoryBus
	Validator    *validator.Validator
	Roster       *studio.Roster
	Appointments *appointments.Module
	Leads        *leads.Module

	closers []func()
}

// Build connects to infrastructure and wires the engine.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*Runtime, error) {
	rt := &Runtime{
		Bus:       events.NewInMemoryBus(log),
		Validator: validator.New(),
	}

	if opts.Migrate {
		if err := WithRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, cfg, migrations.FS)
		}); err != nil {
			return nil, fmt.Errorf("run database migrations: %w", err)
		}
		log.Info("database migrations complete")
	}

	if err := WithRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		rt.Pool = p
		return nil
	}); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	rt.closers = append(rt.closers, rt.Pool.Close)
	log.Info("database connection established")

	roster, err := studio.LoadRoster(cfg.GetArtistsFile())
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Roster = roster
	log.Info("roster loaded", "artists", len(roster.ActiveArtists()))

	lock, err := rt.locker(ctx, cfg, log)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Appointments = appointments.NewModule(rt.Pool, rt.Validator, cfg.GetVideoBaseURL())

	var mail email.Sender = email.NoopSender{}
	if cfg.IsEmailEnabled() {
		mail = email.NewSMTPSender(cfg)
	}
	notification.New(mail, cfg.GetStaffAlertEmail(), log).RegisterHandlers(rt.Bus)

	collab := leads.Collaborators{
		Calendar:  rt.Appointments.Service,
		Messenger: newMessenger(cfg, mail, log),
		Locker:    lock,
	}
	// A nil *MeetingLinks must not become a non-nil interface.
	if rt.Appointments.Video != nil {
		collab.Video = rt.Appointments.Video
	}
	if cfg.IsPaymentsEnabled() {
		collab.Payments = payments.NewCheckout(cfg.GetStripeSecretKey(), cfg.GetDepositSuccessURL())
	} else {
		log.Warn("STRIPE_SECRET_KEY not configured; deposit links disabled")
	}
	if cfg.IsAssistantEnabled() {
		collab.Assistant = agent.New(cfg, log)
	} else {
		log.Warn("MOONSHOT_API_KEY not configured; free-form replies use canned fallbacks")
	}
	if opts.EnqueueSweeps && cfg.IsRedisEnabled() {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("sweep queue unavailable; admin sweeps run inline", "error", err)
		} else {
			rt.closers = append(rt.closers, func() { _ = client.Close() })
			collab.Sweeps = client
		}
	}

	rt.Leads, err = leads.NewModule(rt.Pool, rt.Bus, rt.Validator, cfg, roster, collab, log)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close releases resources in reverse order.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

func (rt *Runtime) locker(ctx context.Context, cfg *config.Config, log *logger.Logger) (leads.Locker, error) {
	if !cfg.IsRedisEnabled() {
		log.Warn("REDIS_URL not configured; using in-process lead locks")
		return locker.NewMemory(cfg.GetDedupeTTL()), nil
	}
	client, err := locker.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	rt.closers = append(rt.closers, func() { _ = client.Close() })
	return locker.NewRedis(client, cfg.GetLockTTL(), cfg.GetDedupeTTL()), nil
}

func newMessenger(cfg *config.Config, sender email.Sender, log *logger.Logger) *messaging.Gateway {
	var wa messaging.WhatsAppSender
	if client := whatsapp.NewClient(cfg, log); client != nil {
		wa = client
	}
	var mail messaging.EmailSender
	if cfg.IsEmailEnabled() {
		mail = sender
	}
	dryRun := !strings.EqualFold(cfg.Env, "production")
	if wa == nil && mail == nil {
		log.Warn("no outbound channel configured; replies are only logged", "dry_run", dryRun)
	}
	return messaging.NewGateway(wa, mail, dryRun, log)
}

// WithRetry retries fn with quadratic backoff.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
