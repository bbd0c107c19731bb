package services

import (
	"fmt"
	"time"

	"comply/models"
	"comply/models/competency"

	"gorm.io/gorm"
)

// ReassignDetails are the successor assignment's details. Unset fields carry
// forward from the original or fall back to agency defaults.
type ReassignDetails struct {
	DueDate         *time.Time `json:"due_date"`
	ExpirationType  *string    `json:"expiration_type" validate:"omitempty,oneof=ONE_TIME YEARLY BIANNUAL"`
	AllowedAttempts *int       `json:"allowed_attempts" validate:"omitempty,gte=1"`
}

// Reassign archives the original assignment out of the active slot and
// creates a fresh instance of the same (user, item, agency) obligation, reset
// to the type's initial state. A second reassignment of the same record is
// rejected as a no-op.
func Reassign(db *gorm.DB, assignmentID uint, details ReassignDetails, initiatorID uint) (*competency.Assignment, error) {
	var successor *competency.Assignment

	err := db.Transaction(func(tx *gorm.DB) error {
		var original competency.Assignment
		if err := tx.Where("id = ? AND is_deleted = ?", assignmentID, false).First(&original).Error; err != nil {
			return ErrAssignmentNotFound
		}
		if original.Reassigned {
			return ErrAlreadyReassigned
		}

		var agency models.Agency
		if err := tx.First(&agency, original.AgencyID).Error; err != nil {
			return ErrAgencyNotFound
		}

		// Release the active slot so the successor can take the key
		res := tx.Model(&competency.Assignment{}).
			Where("id = ? AND lock_version = ? AND reassigned = ?", original.ID, original.LockVersion, false).
			Updates(map[string]interface{}{
				"reassigned":   true,
				"active_key":   gorm.Expr("NULL"),
				"lock_version": original.LockVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		now := time.Now()
		activeKey := competency.BuildActiveKey(original.UserID, original.CompetencyType, original.CompetencyID, original.AgencyID)

		next := competency.Assignment{
			UserID:          original.UserID,
			AgencyID:        original.AgencyID,
			CompetencyType:  original.CompetencyType,
			CompetencyID:    original.CompetencyID,
			VersionID:       original.VersionID,
			BundleID:        original.BundleID,
			Status:          competency.InitialStatus(original.CompetencyType),
			DueDate:         resolveDueDate(details.DueDate, agency, now),
			ExpirationType:  resolveExpiration(details.ExpirationType, original.ExpirationType, agency.DefaultExpiration),
			AllowedAttempts: resolveAttempts(details.AllowedAttempts, 0, original.AllowedAttempts),
			AssignedOn:      now,
			ActiveKey:       &activeKey,
		}
		if err := tx.Create(&next).Error; err != nil {
			return err
		}

		LogEvent(tx, models.UserLog{
			EventType:      models.LogEventReassigned,
			Description:    fmt.Sprintf("Assignment %d superseded by %d", original.ID, next.ID),
			CompetencyType: original.CompetencyType,
			CompetencyID:   original.CompetencyID,
			UserID:         original.UserID,
			InitiatorID:    initiatorID,
			AssignmentID:   original.ID,
		})
		LogEvent(tx, models.UserLog{
			EventType:      models.LogEventReassigned,
			Description:    fmt.Sprintf("Created as successor of assignment %d", original.ID),
			CompetencyType: next.CompetencyType,
			CompetencyID:   next.CompetencyID,
			UserID:         next.UserID,
			InitiatorID:    initiatorID,
			AssignmentID:   next.ID,
		})

		successor = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return successor, nil
}
