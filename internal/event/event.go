package event

import "time"

type Type string

const (
	TypeCredentialRegistered Type = "credential.registered"
	TypeLoginSucceeded       Type = "login.succeeded"
	TypeLoginFailed          Type = "login.failed"
	TypePasswordChanged      Type = "password.changed"
	TypePasswordReset        Type = "password.reset"
)

// Event describes something that happened to a credential. UserID is zero
// when the attempt named an account that does not exist.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Entity     string    `json:"entity"`
	UserID     int64     `json:"userId,omitempty"`
	Email      string    `json:"email,omitempty"`
	SchoolName string    `json:"schoolName,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
