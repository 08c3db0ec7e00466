package messaging

import "time"

// Session lifecycle event names. The full subject is
// "{prefix}.{event}", e.g. "ddpay.session.login".
const (
	EventLogin     = "login"
	EventRegister  = "register"
	EventRefreshed = "refreshed"
	EventLogout    = "logout"
)

// DefaultSessionPrefix is the subject prefix for session events.
const DefaultSessionPrefix = "ddpay.session"

// SessionSubject returns the subject for a session event under prefix.
// An empty prefix falls back to DefaultSessionPrefix.
func SessionSubject(prefix, event string) string {
	if prefix == "" {
		prefix = DefaultSessionPrefix
	}
	return prefix + "." + event
}

// SessionEvent is the payload published on session subjects.
// It carries identity and expiry only, never credentials.
type SessionEvent struct {
	Type       string     `json:"type"`
	UserID     int64      `json:"user_id,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}
