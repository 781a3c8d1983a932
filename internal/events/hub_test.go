package events

import (
	"context"
	"testing"
	"time"

	"github.com/raaihank/data-sentinel/internal/audit"
	"github.com/raaihank/data-sentinel/internal/logger"
)

func TestClientWants(t *testing.T) {
	c := &client{}
	if !c.wants(TypeScrubActivity) {
		t.Error("unsubscribed client should receive everything")
	}
	c.subscription = &Subscription{Events: []Type{TypeSystemStatus}}
	if c.wants(TypeScrubActivity) {
		t.Error("filtered event delivered")
	}
	if !c.wants(TypeSystemStatus) {
		t.Error("subscribed event withheld")
	}
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := NewHub(logger.Nop())
	// No Run loop draining the queue; fill it past capacity.
	for i := 0; i < 300; i++ {
		h.Broadcast(Event{Type: TypeSystemStatus, Timestamp: time.Now()})
	}
	// Reaching here without blocking is the assertion.
}

func TestSinkBroadcastsActivity(t *testing.T) {
	h := NewHub(logger.Nop())
	sink := NewSink(h)

	entries := []audit.Entry{
		{RunID: "run-1", Dataset: "customers", Action: "mask"},
		{RunID: "run-1", Dataset: "customers", Action: "mask"},
		{RunID: "run-1", Dataset: "customers", Action: "redact"},
	}
	if err := sink.Write(context.Background(), entries); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case event := <-h.broadcast:
		if event.Type != TypeScrubActivity {
			t.Fatalf("event type = %s", event.Type)
		}
		activity, ok := event.Data.(ScrubActivity)
		if !ok {
			t.Fatalf("data type %T", event.Data)
		}
		if activity.RunID != "run-1" || activity.Dataset != "customers" {
			t.Errorf("activity = %+v", activity)
		}
		if activity.Actions["mask"] != 2 || activity.Actions["redact"] != 1 {
			t.Errorf("action counts = %v", activity.Actions)
		}
	default:
		t.Fatal("nothing broadcast")
	}

	if err := sink.Write(context.Background(), nil); err != nil {
		t.Errorf("empty write: %v", err)
	}
}

func TestHubLifecycle(t *testing.T) {
	h := NewHub(logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	c := &client{id: "c1", send: make(chan Event, 1)}
	h.register <- c
	deadline := time.Now().Add(time.Second)
	for h.ActiveClients() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h.ActiveClients() != 1 {
		t.Errorf("ActiveClients = %d, want 1", h.ActiveClients())
	}

	h.unregister <- c
	deadline = time.Now().Add(time.Second)
	for h.ActiveClients() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h.ActiveClients() != 0 {
		t.Errorf("ActiveClients = %d after unregister", h.ActiveClients())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestHubRefusesClientsAfterShutdown(t *testing.T) {
	h := NewHub(logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	// Register and unregister sends must not block once the loop exits.
	c := &client{id: "late", send: make(chan Event, 1)}
	attempted := make(chan struct{})
	go func() {
		select {
		case h.register <- c:
		case <-h.done:
		}
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		close(attempted)
	}()
	select {
	case <-attempted:
	case <-time.After(time.Second):
		t.Fatal("register/unregister blocked after shutdown")
	}
	if h.ActiveClients() != 0 {
		t.Errorf("ActiveClients = %d after shutdown", h.ActiveClients())
	}
}

func TestStatusBroadcast(t *testing.T) {
	h := NewHub(logger.Nop())
	h.SetStatus(func() SystemStatus {
		return SystemStatus{Status: "healthy", RegisteredDetectors: 9}
	})

	c := &client{id: "c1", send: make(chan Event, 1)}
	h.clients[c] = true
	h.send(Event{Type: TypeSystemStatus, Timestamp: time.Now().UTC(), Data: h.status()})

	select {
	case event := <-c.send:
		status, ok := event.Data.(SystemStatus)
		if !ok {
			t.Fatalf("data type %T", event.Data)
		}
		if status.RegisteredDetectors != 9 {
			t.Errorf("status = %+v", status)
		}
	default:
		t.Fatal("status event not delivered")
	}
}
