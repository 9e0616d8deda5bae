package core

import "time"

// AuditEntry records one session lifecycle operation.
type AuditEntry struct {
	// ID is the correlation ID of the request that triggered the operation.
	ID string `json:"id,omitempty"`

	Time time.Time `json:"time"`

	// Action is one of "session.login", "session.logout",
	// "session.refresh", "session.sweep".
	Action string `json:"action"`

	TicketID string `json:"ticket_id,omitempty"`
	TokenID  string `json:"token_id,omitempty"`
	Subject  string `json:"subject,omitempty"`

	// RemovedCount is set for sweep entries.
	RemovedCount int `json:"removed_count,omitempty"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Auditor persists audit entries.
type Auditor interface {
	Log(entry AuditEntry) error
	GetRecent(limit int) ([]AuditEntry, error)
	Find(filter func(entry AuditEntry) bool, limit int) ([]AuditEntry, error)
	Close() error
}
