package correlation

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

type key struct{}

// FromContext returns the correlation id carried by ctx, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key{}).(string)
	return id
}

// WithID attaches id to ctx. An empty id leaves ctx unchanged.
func WithID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, key{}, id)
}

// Ensure keeps the id already on ctx or attaches a new one stamped with now.
func Ensure(ctx context.Context, now time.Time) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewID(now)
	return WithID(ctx, id), id
}

// NewID returns a sortable ulid whose timestamp part is now.
func NewID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

// StartedAt decodes the timestamp of an id produced by NewID.
func StartedAt(id string) (time.Time, bool) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()), true
}
