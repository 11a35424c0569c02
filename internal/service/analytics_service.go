package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/events"
)

// AnalyticsService counts committed lifecycle events per guild in
// Redis. Fire and forget: failures are swallowed after a debug log.
type AnalyticsService struct {
	dispatcher events.Dispatcher
	client     *redis.Client
	logger     *zap.Logger
}

// NewAnalyticsService creates the service.
func NewAnalyticsService(dispatcher events.Dispatcher, client *redis.Client, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{dispatcher: dispatcher, client: client, logger: logger}
}

// RegisterHandlers subscribes to lifecycle events.
func (a *AnalyticsService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketClaimed,
		events.EventTicketUnclaimed,
		events.EventTicketTransferred,
		events.EventTicketClosed,
		events.EventTicketCloseRequested,
	} {
		a.dispatcher.Subscribe(eventType, a.capture)
	}
}

func (a *AnalyticsService) capture(ctx context.Context, event events.Event) error {
	if a.client == nil {
		return nil
	}
	key := "analytics:" + event.GuildID + ":" + string(event.Type)
	if err := a.client.Incr(ctx, key).Err(); err != nil {
		a.logger.Debug("analytics capture failed",
			zap.String("key", key),
			zap.Error(err))
	}
	return nil
}
