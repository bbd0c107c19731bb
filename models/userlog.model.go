package models

import "gorm.io/gorm"

// UserLog event types
const (
	LogEventAssigned   = "ASSIGNED"
	LogEventUnassigned = "UNASSIGNED"
	LogEventArchived   = "ARCHIVED"
	LogEventUpdated    = "UPDATED"
	LogEventReassigned = "REASSIGNED"
)

// UserLog is the append-only audit record for assignment lifecycle events.
// Rows are never updated or deleted.
type UserLog struct {
	gorm.Model
	EventType      string `gorm:"index;not null" json:"event_type"`
	Description    string `gorm:"type:text" json:"description"`
	CompetencyType string `json:"competency_type"`
	CompetencyID   uint   `json:"competency_id"`
	UserID         uint   `gorm:"index;not null" json:"user_id"`
	InitiatorID    uint   `json:"initiator_id"`
	AssignmentID   uint   `gorm:"index" json:"assignment_id"`
}
