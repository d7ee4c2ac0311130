// Package audit records the login trail. Events are fed through a buffered
// channel into a background worker so request handling never waits on a
// broker.
package audit

import (
	"time"

	id "atrium/pkg/domain"
)

// Kind classifies an audit event.
type Kind string

const (
	KindLoginSucceeded Kind = "login.succeeded"
	KindLoginFailed    Kind = "login.failed"
	KindLoginReplayed  Kind = "login.replayed"
	KindStateExpired   Kind = "state.expired"
	KindLogout         Kind = "logout"
)

// Event is one audit record. Keep it transport-agnostic so publishers can
// fan out to memory, Kafka, or both.
type Event struct {
	Timestamp time.Time  `json:"timestamp"`
	Kind      Kind       `json:"kind"`
	SiteKey   id.SiteKey `json:"site"`
	Provider  string     `json:"provider,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	ClientIP  string     `json:"client_ip,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}
