package worker

import (
	"github.com/spec-kit/guild-tickets/internal/service"
)

// StartSubscribers registers the post-commit event consumers.
func StartSubscribers(notifications *service.NotificationService, analytics *service.AnalyticsService) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if analytics != nil {
		analytics.RegisterHandlers()
	}
}
