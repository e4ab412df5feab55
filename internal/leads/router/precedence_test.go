package router

import (
	"reflect"
	"testing"
	"time"

	"studio_sales_backend/internal/leads/domain"
	"studio_sales_backend/internal/leads/intent"
)

func TestPrecedenceOrder(t *testing.T) {
	want := []Route{
		RouteRescheduleCancel,
		RouteSlotSelection,
		RouteDeposit,
		RouteScheduling,
		RouteConsultChoice,
		RouteProcessOrPrice,
		RouteFallback,
	}
	if got := Precedence(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Precedence() = %v", got)
	}
}

// Every combination of intents routes to the first matching entry of Precedence.
func TestDecideIsTotal(t *testing.T) {
	offered := domain.CanonicalState{LastOfferedSlots: []domain.Slot{{Start: time.Now()}}}
	for mask := 0; mask < 1<<6; mask++ {
		rec := intent.Record{
			Reschedule:             mask&1 != 0,
			SlotSelection:          mask&2 != 0,
			Deposit:                mask&4 != 0,
			Scheduling:             mask&8 != 0,
			ConsultPathChoice:      mask&16 != 0,
			ProcessOrPriceQuestion: mask&32 != 0,
		}
		for _, state := range []domain.CanonicalState{{}, offered} {
			want := RouteFallback
			switch {
			case rec.Reschedule:
				want = RouteRescheduleCancel
			case rec.SlotSelection && len(state.LastOfferedSlots) > 0:
				want = RouteSlotSelection
			case rec.Deposit:
				want = RouteDeposit
			case rec.Scheduling:
				want = RouteScheduling
			case rec.ConsultPathChoice:
				want = RouteConsultChoice
			case rec.ProcessOrPriceQuestion:
				want = RouteProcessOrPrice
			}
			if got := Decide(rec, state); got != want {
				t.Fatalf("mask %06b offered=%v: got %s, want %s", mask, len(state.LastOfferedSlots) > 0, got, want)
			}
		}
	}
}

func TestDecideCancelWinsOverEverything(t *testing.T) {
	rec := intent.Record{Cancel: true, Deposit: true, Scheduling: true, SlotSelection: true}
	if got := Decide(rec, domain.CanonicalState{}); got != RouteRescheduleCancel {
		t.Fatalf("got %s", got)
	}
}
