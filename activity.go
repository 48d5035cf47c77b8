package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported audit categories.
type ActivityEventType string

const (
	ActivityEventSignup          ActivityEventType = "auth.signup"
	ActivityEventLoginSuccess    ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure    ActivityEventType = "auth.login.failure"
	ActivityEventLogout          ActivityEventType = "auth.logout"
	ActivityEventEmailVerified   ActivityEventType = "auth.email.verified"
	ActivityEventPasswordReset   ActivityEventType = "auth.password.reset"
	ActivityEventSessionRefresh  ActivityEventType = "auth.session.refresh"
	ActivityEventSessionRevoked  ActivityEventType = "auth.session.revoked"
	ActivityEventMailUndelivered ActivityEventType = "auth.mail.undelivered"
)

// ActivityEvent captures audit friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Message    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best effort: callers log failures and move on, so recording can
// never change the outcome of the flow that emitted the event.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// auditLogSink persists activity events into the audit_logs table
type auditLogSink struct {
	logs AuditLogs
}

// NewAuditLogSink returns a sink that writes events to the audit log store
func NewAuditLogSink(logs AuditLogs) ActivitySink {
	return &auditLogSink{logs: logs}
}

func (s *auditLogSink) Record(ctx context.Context, event ActivityEvent) error {
	detail := make(map[string]any, len(event.Metadata)+1)
	for k, v := range event.Metadata {
		detail[k] = v
	}
	if event.UserID != "" {
		detail["user_id"] = event.UserID
	}

	return s.logs.Record(ctx, string(event.EventType), event.Message, detail)
}
