package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/book-review-service/internal/events"
	"github.com/spec-kit/book-review-service/internal/observability"
)

// ActivityService records domain activity published by the other services.
type ActivityService struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewActivityService constructs the service.
func NewActivityService(logger *zap.Logger, metrics *observability.Metrics) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{logger: logger, metrics: metrics}
}

// RegisterHandlers subscribes to every activity event type.
func (s *ActivityService) RegisterHandlers(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventUserRegistered,
		events.EventBookCreated,
		events.EventBookDeleted,
	} {
		dispatcher.Subscribe(eventType, s.handle)
	}
}

func (s *ActivityService) handle(ctx context.Context, event events.Event) error {
	s.metrics.RecordActivity(string(event.Type))
	s.logger.Info("activity",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("actor_id", event.ActorID),
		zap.String("subject_id", event.SubjectID),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload),
	)
	return nil
}
