package model

import (
	"errors"
	"testing"
)

func TestStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to RequestStatus }{
		{StatusPending, StatusAssigned},
		{StatusPending, StatusCancelled},
		{StatusAssigned, StatusInTransit},
		{StatusAssigned, StatusCancelled},
		{StatusInTransit, StatusCompleted},
	}
	for _, tr := range allowed {
		if !tr.from.CanTransition(tr.to) {
			t.Errorf("expected %s -> %s to be allowed", tr.from, tr.to)
		}
	}
	all := []RequestStatus{StatusPending, StatusAssigned, StatusInTransit, StatusCompleted, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			ok := false
			for _, tr := range allowed {
				if tr.from == from && tr.to == to {
					ok = true
				}
			}
			if from.CanTransition(to) != ok {
				t.Errorf("transition %s -> %s: got %v want %v", from, to, from.CanTransition(to), ok)
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusCancelled.Terminal() {
		t.Fatal("COMPLETED and CANCELLED must be terminal")
	}
	if StatusPending.Terminal() || StatusAssigned.Terminal() || StatusInTransit.Terminal() {
		t.Fatal("non-terminal state reported terminal")
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := NewInvalidTransition("r1", StatusCompleted, StatusPending)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatal("expected errors.Is match on ErrInvalidTransition")
	}
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatal("expected errors.As match")
	}
	if ite.From != StatusCompleted || ite.To != StatusPending {
		t.Errorf("unexpected edge in error: %v", ite)
	}
}

func TestProviderPredicates(t *testing.T) {
	p := Provider{
		VehicleTypes:     []string{"box_truck", "van"},
		ServiceRegions:   []string{"north", "east"},
		OnTimeDeliveries: 19,
		TotalDeliveries:  20,
	}
	if !p.Supports("van") || p.Supports("flatbed") {
		t.Error("vehicle type predicate wrong")
	}
	if !p.Serves("north") || p.Serves("south") {
		t.Error("region predicate wrong")
	}
	rate, ok := p.OnTimeRate()
	if !ok || rate != 0.95 {
		t.Errorf("on-time rate: got %v %v", rate, ok)
	}
	if _, ok := (Provider{}).OnTimeRate(); ok {
		t.Error("empty history must report ok=false")
	}
}
