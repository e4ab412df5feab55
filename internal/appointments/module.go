// Package appointments provides the studio calendar: weekly availability per
// calendar resource, booked consults and video-room links.
package appointments

import (
	"studio_sales_backend/internal/appointments/handler"
	"studio_sales_backend/internal/appointments/repository"
	"studio_sales_backend/internal/appointments/service"
	apphttp "studio_sales_backend/internal/http"
	"studio_sales_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the calendar module
type Module struct {
	handler *handler.Handler
	Service *service.Service
	Video   *MeetingLinks
}

// NewModule creates the calendar module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, videoBaseURL string) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)

	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
		Video:   NewMeetingLinks(videoBaseURL),
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes mounts the availability admin routes under /api/v1/admin/calendar
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/calendar"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
