package rush

import (
	"context"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/tableside/pkg"
	"github.com/appetiteclub/tableside/pkg/event"
)

// PublishChanges returns a listener that emits rush.status events.
func PublishChanges(pub events.Publisher, logger apt.Logger) Listener {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return func(ctx context.Context, prev, next Status) {
		if err := pkg.PublishJSON(ctx, pub, event.RushStatusTopic, next.Event(prev.IsRushMode)); err != nil {
			logger.Error("cannot publish rush status", "error", err)
		}
	}
}
