package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// contextExtractor pulls a value out of the request context.
// It returns (value, found) where found indicates if extraction succeeded.
type contextExtractor[T any] func(context.Context) (T, bool)

// Logger appends audit entries, filling in identity and client details
// from the request context via configured extractors.
type Logger struct {
	storage            Storage
	orgIDExtractor     contextExtractor[uuid.UUID]
	actorIDExtractor   contextExtractor[uuid.UUID]
	ipExtractor        contextExtractor[string]
	userAgentExtractor contextExtractor[string]
	now                func() time.Time
}

// Option configures a Logger.
type Option func(*Logger)

// WithOrgIDExtractor sets the function that resolves the organization from
// context.
func WithOrgIDExtractor(fn func(context.Context) (uuid.UUID, bool)) Option {
	return func(l *Logger) { l.orgIDExtractor = fn }
}

// WithActorIDExtractor sets the function that resolves the acting user
// from context.
func WithActorIDExtractor(fn func(context.Context) (uuid.UUID, bool)) Option {
	return func(l *Logger) { l.actorIDExtractor = fn }
}

// WithIPExtractor sets the function that resolves the client IP from
// context.
func WithIPExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.ipExtractor = fn }
}

// WithUserAgentExtractor sets the function that resolves the client user
// agent from context.
func WithUserAgentExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.userAgentExtractor = fn }
}

// WithClock overrides the wall clock, used in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLogger creates an audit logger over the given storage.
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &Logger{
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends one entry for the action. Identity and client details are
// extracted from context first, then options are applied so callers can
// override or supplement them. The stored entry (with its sequence) is
// returned.
func (l *Logger) Record(ctx context.Context, action Action, opts ...EntryOption) (Entry, error) {
	entry := l.entryFromContext(ctx)
	entry.ID = uuid.New()
	entry.Action = action
	entry.CreatedAt = l.now().UTC()

	for _, opt := range opts {
		opt(&entry)
	}

	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}

	if err := l.storage.Store(ctx, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (l *Logger) entryFromContext(ctx context.Context) Entry {
	var entry Entry

	if l.orgIDExtractor != nil {
		if orgID, ok := l.orgIDExtractor(ctx); ok {
			entry.OrgID = orgID
		}
	}
	if l.actorIDExtractor != nil {
		if actorID, ok := l.actorIDExtractor(ctx); ok {
			entry.ActorID = &actorID
		}
	}
	if l.ipExtractor != nil {
		if ip, ok := l.ipExtractor(ctx); ok {
			entry.IP = ip
		}
	}
	if l.userAgentExtractor != nil {
		if userAgent, ok := l.userAgentExtractor(ctx); ok {
			entry.UserAgent = userAgent
		}
	}
	return entry
}
