package auth

import (
	"context"
	"time"
)

// ActivityEventType names an account action worth auditing
type ActivityEventType string

const (
	ActivityEventUserRegistered         ActivityEventType = "user.registered"
	ActivityEventUserActivated          ActivityEventType = "user.activated"
	ActivityEventUserUpdated            ActivityEventType = "user.updated"
	ActivityEventUserDeleted            ActivityEventType = "user.deleted"
	ActivityEventLoginSuccess           ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure           ActivityEventType = "auth.login.failure"
	ActivityEventLogout                 ActivityEventType = "auth.logout"
	ActivityEventPasswordResetRequested ActivityEventType = "auth.password.reset_requested"
	ActivityEventPasswordResetSuccess   ActivityEventType = "auth.password.reset"
)

// ActivityEvent is one audited action. ActorID differs from UserID
// when someone acts on another account, e.g. an admin deleting a user.
type ActivityEvent struct {
	EventType  ActivityEventType
	ActorID    string
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink receives every ActivityEvent the package emits
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc lets a plain function act as a sink
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type discardSink struct{}

func (discardSink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return discardSink{}
	}
	return s
}

// recordActivity is best effort, sink failures are only logged
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		resolveLogger(logger).Warn("failed to record activity", "event", event.EventType, "error", err)
	}
}
