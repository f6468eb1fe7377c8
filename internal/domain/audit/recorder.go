package audit

import (
	"context"
	"log/slog"
)

// Recorder persists every event and, when a publisher is configured,
// broadcasts it downstream. Persistence failures are returned to the caller;
// publish failures are logged and swallowed so the pipeline never stalls on
// the broadcast path.
type Recorder struct {
	repo      Repository
	publisher Publisher // May be nil when broadcasting is disabled
	logger    *slog.Logger
}

// NewRecorder creates a recorder. publisher may be nil.
func NewRecorder(repo Repository, publisher Publisher, logger *slog.Logger) *Recorder {
	return &Recorder{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Record appends the event to the audit store and broadcasts it best-effort
func (r *Recorder) Record(ctx context.Context, event *Event) error {
	if err := r.repo.Append(ctx, event); err != nil {
		return err
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.logger.Error("Failed to publish audit event",
				"event_type", string(event.EventType),
				"event_id", event.ID.String(),
				"error", err,
			)
		}
	}

	return nil
}
