package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/config"
	"github.com/spec-kit/guild-tickets/internal/events"
)

func TestNotificationDeliversCommittedEvents(t *testing.T) {
	received := make(chan events.Event, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event events.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			t.Errorf("decode webhook body: %v", err)
		}
		received <- event
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{WebhookURL: server.URL})
	svc.RegisterHandlers()

	ticketID := int64(7)
	err := dispatcher.Publish(context.Background(), events.Event{
		ID:       "evt-1",
		Type:     events.EventTicketClosed,
		GuildID:  "g1",
		TicketID: &ticketID,
		ActorID:  "staff",
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case event := <-received:
		if event.Type != events.EventTicketClosed || event.GuildID != "g1" {
			t.Fatalf("unexpected webhook payload: %+v", event)
		}
	default:
		t.Fatal("webhook not delivered")
	}
}

func TestNotificationFailureIsSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{WebhookURL: server.URL})
	svc.RegisterHandlers()

	if err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated, GuildID: "g1"}); err != nil {
		t.Fatalf("publish must not surface delivery failures: %v", err)
	}
}

func TestNotificationNoURLIsNoop(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{})
	svc.RegisterHandlers()

	if err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated, GuildID: "g1"}); err != nil {
		t.Fatal(err)
	}
}
