// Package activitymap turns auth activity events into flat records
// for audit logs and downstream consumers.
package activitymap

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-print"
	auth "github.com/goliatone/go-session-auth"
)

// MetadataKeyOnBehalf is set when the actor acted on another user,
// e.g. an admin deleting an account.
const MetadataKeyOnBehalf = "on_behalf"

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	defaultActorID    = "anonymous"
)

// Normalized is a transport agnostic activity record
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
}

// Normalize maps event to a Normalized record. The actor falls back to
// the subject user, then to the configured fallback.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := strings.TrimSpace(event.ActorID)
	userID := strings.TrimSpace(event.UserID)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	metadata := cloneMap(event.Metadata)
	if actorID != "" && userID != "" && actorID != userID {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[MetadataKeyOnBehalf] = true
	}

	return Normalized{
		ActorID:    firstNonEmpty(actorID, userID, options.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   userID,
		Channel:    options.channel,
		Metadata:   metadata,
		OccurredAt: occurredAt,
	}
}

func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback names the actor of events without actor or user
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// NewLogSink returns an ActivitySink writing normalized records to
// logger at info level.
func NewLogSink(logger auth.Logger, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		record := Normalize(event, opts...)
		logger.Info("activity",
			"verb", record.Verb,
			"actor_id", record.ActorID,
			"object_id", record.ObjectID,
			"metadata", print.MaybePrettyJSON(record.Metadata),
		)
		return nil
	})
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	return maps.Clone(in)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
