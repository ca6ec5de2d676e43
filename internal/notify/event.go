package notify

// Package notify carries user-facing session notifications from the session
// core to whatever surface displays them (CLI output, desktop toasts, logs).

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the notification class so sinks can style or route it.
type Kind string

const (
	KindWelcome                Kind = "welcome"
	KindPasswordChangeRequired Kind = "password_change_required"
	KindPasswordChanged        Kind = "password_changed"
	KindLogout                 Kind = "logout"
	KindInactivityLogout       Kind = "inactivity_logout"
	KindSessionRenewed         Kind = "session_renewed"
	KindSessionWarning         Kind = "session_warning"
	KindAuthError              Kind = "auth_error"
	KindAPIError               Kind = "api_error"
)

// Severity levels recognised by downstream sinks.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event is a single user-facing notification.
type Event struct {
	ID       string
	Kind     Kind
	Severity string
	Message  string
	At       time.Time
}

// NewEvent builds an event with a fresh ID.
func NewEvent(kind Kind, severity, message string, at time.Time) Event {
	return Event{
		ID:       uuid.NewString(),
		Kind:     kind,
		Severity: severity,
		Message:  message,
		At:       at,
	}
}

// Sink describes a destination capable of consuming session notifications.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, ev Event) error

// Send implements the Sink interface.
func (f SinkFunc) Send(ctx context.Context, ev Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, ev)
}
