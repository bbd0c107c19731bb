package services

import (
	"log"

	"comply/models"

	"gorm.io/gorm"
)

// LogEvent appends one row to the assignment audit log. The log is
// append-only; nothing ever updates or deletes these rows.
func LogEvent(db *gorm.DB, entry models.UserLog) error {
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("[AUDIT] Failed to write %s log for assignment %d: %v", entry.EventType, entry.AssignmentID, err)
		return err
	}
	return nil
}
