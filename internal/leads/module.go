// Package leads wires the conversational sales engine and exposes it over HTTP.
package leads

import (
	"context"
	"fmt"
	"time"

	"studio_sales_backend/internal/events"
	apphttp "studio_sales_backend/internal/http"
	"studio_sales_backend/internal/leads/handler"
	"studio_sales_backend/internal/leads/holds"
	"studio_sales_backend/internal/leads/intent"
	"studio_sales_backend/internal/leads/ports"
	"studio_sales_backend/internal/leads/repository"
	"studio_sales_backend/internal/leads/router"
	"studio_sales_backend/internal/leads/slots"
	"studio_sales_backend/internal/leads/workload"
	"studio_sales_backend/internal/studio"
	"studio_sales_backend/platform/config"
	"studio_sales_backend/platform/logger"
	"studio_sales_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const sweepDedupeWindow = 30 * time.Second

// Locker serializes work per lead and drops redelivered messages.
type Locker interface {
	ports.LeadLocker
	ports.MessageDeduper
}

// SweepQueue hands a sweep to the background worker.
type SweepQueue interface {
	EnqueueSweep(ctx context.Context, reason string, uniqueFor time.Duration) error
}

// Collaborators are the external systems the module drives. Only Calendar,
// Messenger and Locker are required.
type Collaborators struct {
	Calendar  ports.Calendar
	Video     ports.VideoLinks
	Payments  ports.Payments
	Messenger ports.Messenger
	Assistant ports.Assistant
	Locker    Locker
	Sweeps    SweepQueue
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	store   *repository.Store
	router  *router.Router
	holds   *holds.Manager
	sweeps  SweepQueue
	log     *logger.Logger
}

var _ apphttp.Module = (*Module)(nil)

// NewModule creates the engine from config and collaborators.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, cfg *config.Config, roster *studio.Roster, collab Collaborators, log *logger.Logger) (*Module, error) {
	if collab.Calendar == nil || collab.Messenger == nil || collab.Locker == nil {
		return nil, fmt.Errorf("leads module: calendar, messenger and locker are required")
	}

	rules, err := intent.DefaultRuleSet()
	if err != nil {
		return nil, fmt.Errorf("load intent rules: %w", err)
	}

	store := repository.NewStore(pool)
	loc := cfg.GetStudioLocation()

	engine := slots.NewEngine(collab.Calendar, roster, workload.New(store, log), slots.Config{
		Location:        loc,
		OfferCount:      cfg.GetSlotsOfferCount(),
		ConsultDuration: cfg.GetConsultDuration(),
		HorizonDays:     cfg.GetSlotHorizonDays(),
		Synthetic:       cfg.GetSlotsSynthetic(),
	}, log)

	manager := holds.New(holds.Deps{
		Leads:     store,
		Index:     store,
		Calendar:  collab.Calendar,
		Video:     collab.Video,
		Payments:  collab.Payments,
		Messenger: collab.Messenger,
		Locker:    collab.Locker,
		Roster:    roster,
		Bus:       bus,
	}, holds.Config{
		TTL:                cfg.GetHoldTTL(),
		WarningWindow:      cfg.GetHoldWarningWindow(),
		DepositAmountCents: cfg.GetDepositAmountCents(),
		Currency:           cfg.GetDepositCurrency(),
		Location:           loc,
	}, log)

	r := router.New(router.Deps{
		Leads:      store,
		Messenger:  collab.Messenger,
		History:    store,
		Assistant:  collab.Assistant,
		Locker:     collab.Locker,
		Deduper:    collab.Locker,
		Classifier: intent.NewClassifier(rules),
		Slots:      engine,
		Holds:      manager,
		Roster:     roster,
		Bus:        bus,
	}, router.Config{
		DepositAmountCents: cfg.GetDepositAmountCents(),
		Currency:           cfg.GetDepositCurrency(),
	}, log)

	m := &Module{
		store:  store,
		router: r,
		holds:  manager,
		sweeps: collab.Sweeps,
		log:    log,
	}
	m.handler = handler.New(r, store, m, val, log)
	return m, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes mounts the inbound webhook and admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterWebhookRoutes(ctx.Webhooks)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Router is used by the payments webhook to confirm deposits.
func (m *Module) Router() *router.Router {
	return m.router
}

// Holds is used by the sweep worker.
func (m *Module) Holds() *holds.Manager {
	return m.holds
}

// TriggerSweep queues a sweep when a worker is available and otherwise runs
// it inline.
func (m *Module) TriggerSweep(ctx context.Context) (holds.SweepReport, bool, error) {
	if m.sweeps != nil {
		err := m.sweeps.EnqueueSweep(ctx, "admin", sweepDedupeWindow)
		if err == nil {
			return holds.SweepReport{}, true, nil
		}
		m.log.Warn("sweep enqueue failed, running inline", "error", err)
	}
	report, err := m.holds.Sweep(ctx)
	return report, false, err
}
