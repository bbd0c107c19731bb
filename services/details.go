package services

import (
	"time"

	"comply/models"
	"comply/models/competency"

	"gorm.io/gorm"
)

// EditAssignmentDetails updates an assignment's due date, attempt allowance
// or expiration policy and writes an audit log entry.
func EditAssignmentDetails(db *gorm.DB, assignmentID, agencyID uint, details DetailOverrides, initiatorID uint) (*competency.Assignment, error) {
	var a competency.Assignment
	err := db.Where("id = ? AND agency_id = ? AND is_deleted = ?", assignmentID, agencyID, false).First(&a).Error
	if err != nil {
		return nil, ErrAssignmentNotFound
	}
	if a.Status == competency.StatusArchived {
		return nil, ErrWrongState
	}

	updates := map[string]interface{}{
		"lock_version": a.LockVersion + 1,
	}
	if details.DueDate != nil {
		updates["due_date"] = *details.DueDate
		a.DueDate = details.DueDate
	}
	if details.AllowedAttempts != nil {
		updates["allowed_attempts"] = *details.AllowedAttempts
		a.AllowedAttempts = *details.AllowedAttempts
	}
	if details.ExpirationType != nil {
		updates["expiration_type"] = *details.ExpirationType
		a.ExpirationType = *details.ExpirationType
	}

	res := db.Model(&competency.Assignment{}).
		Where("id = ? AND lock_version = ?", a.ID, a.LockVersion).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConflict
	}

	LogEvent(db, models.UserLog{
		EventType:      models.LogEventUpdated,
		Description:    "Assignment details updated",
		CompetencyType: a.CompetencyType,
		CompetencyID:   a.CompetencyID,
		UserID:         a.UserID,
		InitiatorID:    initiatorID,
		AssignmentID:   a.ID,
	})

	return &a, nil
}

// MarkModuleCompleted is the admin override that completes a module or skill
// checklist assignment outside the normal attempt flow.
func MarkModuleCompleted(db *gorm.DB, assignmentID, agencyID uint, finishedOn time.Time, expirationType string, initiatorID uint) (*competency.Assignment, error) {
	var a competency.Assignment
	err := db.Where("id = ? AND agency_id = ? AND is_deleted = ?", assignmentID, agencyID, false).First(&a).Error
	if err != nil {
		return nil, ErrAssignmentNotFound
	}
	if a.CompetencyType != competency.TypeModule && a.CompetencyType != competency.TypeSkillChecklist {
		return nil, ErrWrongState
	}
	if a.Status == competency.StatusArchived || a.Status == competency.StatusCompleted {
		return nil, ErrWrongState
	}

	if expirationType == "" {
		expirationType = a.ExpirationType
	}

	res := db.Model(&competency.Assignment{}).
		Where("id = ? AND lock_version = ?", a.ID, a.LockVersion).
		Updates(map[string]interface{}{
			"status":          competency.StatusCompleted,
			"finished_on":     finishedOn,
			"expiration_type": expirationType,
			"expires_on":      ExpiryDate(expirationType, finishedOn),
			"lock_version":    a.LockVersion + 1,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConflict
	}

	LogEvent(db, models.UserLog{
		EventType:      models.LogEventUpdated,
		Description:    "Marked completed by administrator",
		CompetencyType: a.CompetencyType,
		CompetencyID:   a.CompetencyID,
		UserID:         a.UserID,
		InitiatorID:    initiatorID,
		AssignmentID:   a.ID,
	})

	a.Status = competency.StatusCompleted
	a.FinishedOn = &finishedOn
	a.ExpirationType = expirationType
	a.ExpiresOn = ExpiryDate(expirationType, finishedOn)
	return &a, nil
}
