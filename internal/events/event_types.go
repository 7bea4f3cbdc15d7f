package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered     EventType = "user_registered"
	EventRegistrationFailed EventType = "registration_failed"
	EventLoginSucceeded     EventType = "login_succeeded"
	EventLoginFailed        EventType = "login_failed"
)

// AllEventTypes lists every published type, in a stable order.
var AllEventTypes = []EventType{
	EventUserRegistered,
	EventRegistrationFailed,
	EventLoginSucceeded,
	EventLoginFailed,
}

// Event is an authentication occurrence. It never carries passwords or digests.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}
