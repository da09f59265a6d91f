package domain

import "time"

// TargetType identifies the kind of record an audit entry refers to.
type TargetType string

const (
	TargetUser       TargetType = "user"
	TargetDispute    TargetType = "dispute"
	TargetInvitation TargetType = "invitation"
)

// AuditEntry is an append-only record of a privileged action.
type AuditEntry struct {
	ID         string
	Action     string
	ActorID    string
	TargetID   string
	TargetType TargetType
	Details    map[string]any
	Timestamp  time.Time
}
