package model

import "time"

// AuditEntry is one persisted credential event.
type AuditEntry struct {
	ID         int64     `json:"id"`
	EventID    string    `json:"eventId"`
	Action     string    `json:"action"`
	Entity     string    `json:"entity"`
	UserID     int64     `json:"userId,omitempty"`
	Email      string    `json:"email,omitempty"`
	SchoolName string    `json:"schoolName,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type AuditEntryList struct {
	Items []AuditEntry `json:"items"`
}
