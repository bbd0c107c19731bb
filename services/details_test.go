package services

import (
	"testing"
	"time"

	"comply/models"
	"comply/models/competency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditAssignmentDetails(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	user := seedClinician(t, db, agency.ID, nil)
	a := seedAssignment(t, db, user.ID, agency.ID, competency.TypeModule, 1, nil)

	due := time.Now().AddDate(0, 1, 0)
	attempts := 4
	expiration := competency.ExpirationOneTime

	updated, err := EditAssignmentDetails(db, a.ID, agency.ID, DetailOverrides{
		DueDate:         &due,
		AllowedAttempts: &attempts,
		ExpirationType:  &expiration,
	}, 9)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.AllowedAttempts)
	assert.Equal(t, competency.ExpirationOneTime, updated.ExpirationType)

	require.NoError(t, db.First(&a, a.ID).Error)
	assert.Equal(t, 4, a.AllowedAttempts)
	assert.Equal(t, 1, a.LockVersion)
	require.NotNil(t, a.DueDate)
	assert.WithinDuration(t, due, *a.DueDate, time.Second)

	var logCount int64
	db.Model(&models.UserLog{}).Where("event_type = ? AND assignment_id = ?", models.LogEventUpdated, a.ID).Count(&logCount)
	assert.EqualValues(t, 1, logCount)
}

func TestEditAssignmentDetailsGuards(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	other := seedAgency(t, db, nil)
	user := seedClinician(t, db, agency.ID, nil)

	attempts := 2

	t.Run("wrong agency", func(t *testing.T) {
		a := seedAssignment(t, db, user.ID, agency.ID, competency.TypeModule, 1, nil)
		_, err := EditAssignmentDetails(db, a.ID, other.ID, DetailOverrides{AllowedAttempts: &attempts}, 9)
		assert.ErrorIs(t, err, ErrAssignmentNotFound)
	})

	t.Run("archived", func(t *testing.T) {
		a := seedAssignment(t, db, user.ID, agency.ID, competency.TypeModule, 2, func(a *competency.Assignment) {
			a.Status = competency.StatusArchived
			a.ActiveKey = nil
		})
		_, err := EditAssignmentDetails(db, a.ID, agency.ID, DetailOverrides{AllowedAttempts: &attempts}, 9)
		assert.ErrorIs(t, err, ErrWrongState)
	})
}

func TestMarkModuleCompleted(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	user := seedClinician(t, db, agency.ID, nil)

	finished := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	a := seedAssignment(t, db, user.ID, agency.ID, competency.TypeSkillChecklist, 1, nil)
	updated, err := MarkModuleCompleted(db, a.ID, agency.ID, finished, competency.ExpirationBiannual, 9)
	require.NoError(t, err)
	assert.Equal(t, competency.StatusCompleted, updated.Status)
	require.NotNil(t, updated.ExpiresOn)
	assert.Equal(t, finished.AddDate(2, 0, 0), *updated.ExpiresOn)

	require.NoError(t, db.First(&a, a.ID).Error)
	assert.Equal(t, competency.StatusCompleted, a.Status)
	require.NotNil(t, a.FinishedOn)
}

func TestMarkModuleCompletedGuards(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	user := seedClinician(t, db, agency.ID, nil)
	exam, _ := seedExam(t, db, nil)

	finished := time.Now()

	t.Run("exams cannot be force-completed", func(t *testing.T) {
		a := seedAssignment(t, db, user.ID, agency.ID, competency.TypeExam, exam.ID, nil)
		_, err := MarkModuleCompleted(db, a.ID, agency.ID, finished, "", 9)
		assert.ErrorIs(t, err, ErrWrongState)
	})

	t.Run("already completed", func(t *testing.T) {
		a := seedAssignment(t, db, user.ID, agency.ID, competency.TypeModule, 1, func(a *competency.Assignment) {
			a.Status = competency.StatusCompleted
		})
		_, err := MarkModuleCompleted(db, a.ID, agency.ID, finished, "", 9)
		assert.ErrorIs(t, err, ErrWrongState)
	})

	t.Run("empty expiration keeps the assignment policy", func(t *testing.T) {
		a := seedAssignment(t, db, user.ID, agency.ID, competency.TypeModule, 2, func(a *competency.Assignment) {
			a.ExpirationType = competency.ExpirationYearly
		})
		updated, err := MarkModuleCompleted(db, a.ID, agency.ID, finished, "", 9)
		require.NoError(t, err)
		assert.Equal(t, competency.ExpirationYearly, updated.ExpirationType)
		require.NotNil(t, updated.ExpiresOn)
	})
}
