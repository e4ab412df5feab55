// Package router runs one inbound lead message through classification and
// phase derivation and dispatches it to exactly one handler.
package router

import (
	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/intent"
)

// Route names the handler that answers a message.
type Route string

const (
	RouteRescheduleCancel Route = "reschedule_cancel"
	RouteSlotSelection    Route = "slot_selection"
	RouteDeposit          Route = "deposit"
	RouteScheduling       Route = "scheduling"
	RouteConsultChoice    Route = "consult_choice"
	RouteProcessOrPrice   Route = "process_or_price"
	RouteFallback         Route = "llm_fallback"
)

type routeRule struct {
	route Route
	when  func(intent.Record, domain.CanonicalState) bool
}

var precedence = []routeRule{
	{RouteRescheduleCancel, func(r intent.Record, _ domain.CanonicalState) bool {
		return r.Reschedule || r.Cancel
	}},
	{RouteSlotSelection, func(r intent.Record, s domain.CanonicalState) bool {
		return r.SlotSelection && len(s.LastOfferedSlots) > 0
	}},
	{RouteDeposit, func(r intent.Record, _ domain.CanonicalState) bool {
		return r.Deposit
	}},
	{RouteScheduling, func(r intent.Record, _ domain.CanonicalState) bool {
		return r.Scheduling
	}},
	{RouteConsultChoice, func(r intent.Record, _ domain.CanonicalState) bool {
		return r.ConsultPathChoice
	}},
	{RouteProcessOrPrice, func(r intent.Record, _ domain.CanonicalState) bool {
		return r.ProcessOrPriceQuestion
	}},
}

// Precedence lists routes highest priority first. The fallback always comes last.
func Precedence() []Route {
	out := make([]Route, 0, len(precedence)+1)
	for _, rule := range precedence {
		out = append(out, rule.route)
	}
	return append(out, RouteFallback)
}

// Decide picks the route for a classified message. It is total: with no
// matching intent the language-model fallback answers.
func Decide(rec intent.Record, state domain.CanonicalState) Route {
	for _, rule := range precedence {
		if rule.when(rec, state) {
			return rule.route
		}
	}
	return RouteFallback
}
