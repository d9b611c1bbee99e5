package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case event, ok := <-ch:
		if !ok {
			t.Fatalf("expected an event, channel was closed")
		}
		return event
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func TestBus_PublishReachesSubscriber(t *testing.T) {
	bus := NewBus(nil, testLogger())
	defer bus.Close()

	ch, cancel := bus.Subscribe(4)
	defer cancel()

	bus.Publish(context.Background(), Event{
		Type:    TypeOrbDepleted,
		Payload: OrbPayload{OrbID: 7},
	})

	event := receive(t, ch)
	if event.Type != TypeOrbDepleted {
		t.Fatalf("expected type %q, got %q", TypeOrbDepleted, event.Type)
	}
	if event.At.IsZero() {
		t.Fatalf("expected publish to stamp the event time")
	}
}

func TestBus_AllSubscribersReceive(t *testing.T) {
	bus := NewBus(nil, testLogger())
	defer bus.Close()

	first, cancelFirst := bus.Subscribe(4)
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe(4)
	defer cancelSecond()

	bus.Publish(context.Background(), Event{Type: TypeExtractionBegun, ActorID: 3})

	if event := receive(t, first); event.ActorID != 3 {
		t.Fatalf("expected actor 3, got %d", event.ActorID)
	}
	if event := receive(t, second); event.ActorID != 3 {
		t.Fatalf("expected actor 3, got %d", event.ActorID)
	}
}

func TestBus_SlowSubscriberShedsOldest(t *testing.T) {
	bus := NewBus(nil, testLogger())
	defer bus.Close()

	ch, cancel := bus.Subscribe(2)
	defer cancel()

	bus.Publish(context.Background(), Event{Type: TypeExtractionBegun})
	bus.Publish(context.Background(), Event{Type: TypePacketExtracted})
	bus.Publish(context.Background(), Event{Type: TypePacketAcknowledged})

	first := receive(t, ch)
	second := receive(t, ch)
	if first.Type != TypePacketExtracted {
		t.Fatalf("expected oldest event to be shed, got %q first", first.Type)
	}
	if second.Type != TypePacketAcknowledged {
		t.Fatalf("expected newest event retained, got %q", second.Type)
	}
}

func TestBus_CancelClosesChannel(t *testing.T) {
	bus := NewBus(nil, testLogger())
	defer bus.Close()

	ch, cancel := bus.Subscribe(1)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected channel to close after cancel")
	}

	// A second cancel must be safe.
	cancel()
}

func TestBus_PublishAfterCloseDoesNotPanic(t *testing.T) {
	bus := NewBus(nil, testLogger())
	ch, _ := bus.Subscribe(1)
	bus.Close()

	bus.Publish(context.Background(), Event{Type: TypeExtractionEnded})

	if _, ok := <-ch; ok {
		t.Fatalf("expected subscriber channel closed after bus close")
	}
}
