package services

import (
	"errors"
	"log"
	"time"

	"comply/models"
	"comply/models/competency"

	"gorm.io/gorm"
)

// SweepDueDates marks overdue, not-yet-terminal assignments DUE_DATE_EXPIRED.
// Capped at `limit` rows per competency type per run; larger backlogs
// converge over consecutive runs. Returns the number of rows transitioned.
func SweepDueDates(db *gorm.DB, now time.Time, limit int) (int, error) {
	swept := 0
	for _, competencyType := range competency.AllTypes {
		var overdue []competency.Assignment
		err := db.
			Where("competency_type = ? AND due_date < ? AND status NOT IN ? AND is_deleted = ?",
				competencyType, now, competency.TerminalStatuses, false).
			Limit(limit).
			Find(&overdue).Error
		if err != nil {
			return swept, err
		}

		for i := range overdue {
			a := &overdue[i]
			res := db.Model(&competency.Assignment{}).
				Where("id = ? AND lock_version = ?", a.ID, a.LockVersion).
				Updates(map[string]interface{}{
					"status":       competency.StatusDueDateExpired,
					"lock_version": a.LockVersion + 1,
				})
			if res.Error != nil {
				log.Printf("[MAINTENANCE] Due-date sweep failed on assignment %d: %v", a.ID, res.Error)
				continue
			}
			if res.RowsAffected == 0 {
				continue // a live request got there first
			}
			swept++
		}
	}
	return swept, nil
}

// SweepExamTimeouts force-terminates attempts whose window lapsed while the
// assignment sat IN_PROGRESS. Lost optimistic-lock races mean a live
// submission finalized the attempt; those are skipped, not errors.
func SweepExamTimeouts(db *gorm.DB, now time.Time, limit int) (int, error) {
	var lapsed []competency.Assignment
	err := db.
		Where("competency_type = ? AND status = ? AND attempt_due IS NOT NULL AND attempt_due < ? AND is_deleted = ?",
			competency.TypeExam, competency.StatusInProgress, now, false).
		Limit(limit).
		Find(&lapsed).Error
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range lapsed {
		if err := FinalizeTimedOutAttempt(db, &lapsed[i]); err != nil {
			if errors.Is(err, ErrConflict) {
				continue
			}
			log.Printf("[MAINTENANCE] Timeout sweep failed on assignment %d: %v", lapsed[i].ID, err)
			continue
		}
		swept++
	}
	return swept, nil
}

// SweepExpiringAssignments creates successor assignments for completed work
// nearing expiry, for agencies that opted in. Agencies are processed in
// batches of `agencyBatch` to bound memory and connection use. The bulk path
// never emails; the successor is only audit-logged.
func SweepExpiringAssignments(db *gorm.DB, now time.Time, windowDays, agencyBatch int) (int, error) {
	horizon := now.AddDate(0, 0, windowDays)
	reassigned := 0

	offset := 0
	for {
		var agencies []models.Agency
		err := db.
			Where("auto_reassign_expiring = ? AND is_deleted = ?", true, false).
			Order("id").
			Limit(agencyBatch).
			Offset(offset).
			Find(&agencies).Error
		if err != nil {
			return reassigned, err
		}
		if len(agencies) == 0 {
			return reassigned, nil
		}

		agencyIDs := make([]uint, len(agencies))
		for i, ag := range agencies {
			agencyIDs[i] = ag.ID
		}

		var expiring []competency.Assignment
		err = db.
			Where("agency_id IN ? AND reassigned = ? AND expires_on IS NOT NULL AND expires_on BETWEEN ? AND ? AND is_deleted = ?",
				agencyIDs, false, now, horizon, false).
			Find(&expiring).Error
		if err != nil {
			return reassigned, err
		}

		for i := range expiring {
			if _, err := Reassign(db, expiring[i].ID, ReassignDetails{}, 0); err != nil {
				if errors.Is(err, ErrAlreadyReassigned) {
					continue
				}
				log.Printf("[MAINTENANCE] Auto-reassign failed on assignment %d: %v", expiring[i].ID, err)
				continue
			}
			reassigned++
		}

		offset += agencyBatch
	}
}
