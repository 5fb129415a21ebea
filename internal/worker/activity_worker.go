package worker

import (
	"github.com/spec-kit/book-review-service/internal/events"
	"github.com/spec-kit/book-review-service/internal/service"
)

// StartActivityWorker registers activity handlers on the dispatcher.
func StartActivityWorker(dispatcher events.Dispatcher, activity *service.ActivityService) {
	if dispatcher == nil || activity == nil {
		return
	}
	activity.RegisterHandlers(dispatcher)
}
