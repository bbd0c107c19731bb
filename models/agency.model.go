package models

import "gorm.io/gorm"

// Agency is the tenant every user, competency and assignment is scoped to
type Agency struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`

	// Assignment defaults applied when a request carries no overrides
	DefaultDueDateDays     int    `gorm:"default:0" json:"default_due_date_days"` // 0 = no default, fall back to now+2y
	DefaultExpiration      string `gorm:"default:''" json:"default_expiration"`   // ONE_TIME, YEARLY, BIANNUAL
	DefaultAllowedAttempts int    `gorm:"default:0" json:"default_allowed_attempts"`

	// Notification / feature toggles
	NotifyNewAssignment  bool `gorm:"default:false" json:"notify_new_assignment"`
	AutoReassignExpiring bool `gorm:"default:false" json:"auto_reassign_expiring"`
	EnableProctoring     bool `gorm:"default:false" json:"enable_proctoring"`

	IsDeleted bool `gorm:"default:false" json:"-"`
}
