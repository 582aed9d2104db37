package orchestrator_test

import (
	"testing"

	"reportwatch/internal/orchestrator"
)

func TestBusDeliversInOrderAndSurvivesPanics(t *testing.T) {
	bus := orchestrator.NewBus(nil)
	var got []string
	bus.Subscribe(func(orchestrator.Event) { got = append(got, "first") })
	bus.Subscribe(func(orchestrator.Event) { panic("listener failure") })
	unsubscribe := bus.Subscribe(func(orchestrator.Event) { got = append(got, "third") })

	bus.Publish(orchestrator.Event{Kind: orchestrator.EventStarted})
	if len(got) != 2 || got[0] != "first" || got[1] != "third" {
		t.Fatalf("delivery = %v", got)
	}

	unsubscribe()
	got = nil
	bus.Publish(orchestrator.Event{Kind: orchestrator.EventStarted})
	if len(got) != 1 || got[0] != "first" {
		t.Fatalf("after unsubscribe = %v", got)
	}
}
