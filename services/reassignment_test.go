package services

import (
	"testing"
	"time"

	"comply/models"
	"comply/models/competency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReassignCreatesFreshSuccessor(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	user := seedClinician(t, db, agency.ID, nil)
	exam, version := seedExam(t, db, nil)

	finished := time.Now().AddDate(0, -11, 0)
	expires := time.Now().AddDate(0, 1, 0)
	score := 88
	original := seedAssignment(t, db, user.ID, agency.ID, competency.TypeExam, exam.ID, func(a *competency.Assignment) {
		a.Status = competency.StatusCompleted
		a.VersionID = version.ID
		a.FinishedOn = &finished
		a.ExpiresOn = &expires
		a.Score = &score
		a.AttemptsUsed = 2
	})

	successor, err := Reassign(db, original.ID, ReassignDetails{}, 7)
	require.NoError(t, err)

	// Successor starts over with the same obligation
	assert.Equal(t, user.ID, successor.UserID)
	assert.Equal(t, exam.ID, successor.CompetencyID)
	assert.Equal(t, competency.StatusNotStarted, successor.Status)
	assert.Equal(t, 0, successor.AttemptsUsed)
	assert.Nil(t, successor.Score)
	require.NotNil(t, successor.ActiveKey)
	assert.Equal(t, competency.BuildActiveKey(user.ID, competency.TypeExam, exam.ID, agency.ID), *successor.ActiveKey)

	// Original is released from the active slot but keeps its history
	require.NoError(t, db.First(&original, original.ID).Error)
	assert.True(t, original.Reassigned)
	assert.Nil(t, original.ActiveKey)
	assert.Equal(t, competency.StatusCompleted, original.Status)
	assert.NotNil(t, original.FinishedOn)

	var logCount int64
	db.Model(&models.UserLog{}).Where("event_type = ?", models.LogEventReassigned).Count(&logCount)
	assert.EqualValues(t, 2, logCount) // one entry per side
}

func TestReassignDetailsOverrideDefaults(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, func(a *models.Agency) { a.DefaultDueDateDays = 14 })
	user := seedClinician(t, db, agency.ID, nil)
	exam, _ := seedExam(t, db, nil)

	original := seedAssignment(t, db, user.ID, agency.ID, competency.TypeExam, exam.ID, func(a *competency.Assignment) {
		a.Status = competency.StatusCompleted
		a.AllowedAttempts = 2
		a.ExpirationType = competency.ExpirationBiannual
	})

	due := time.Now().AddDate(0, 6, 0)
	attempts := 5
	successor, err := Reassign(db, original.ID, ReassignDetails{
		DueDate:         &due,
		AllowedAttempts: &attempts,
	}, 7)
	require.NoError(t, err)

	require.NotNil(t, successor.DueDate)
	assert.WithinDuration(t, due, *successor.DueDate, time.Second)
	assert.Equal(t, 5, successor.AllowedAttempts)
	// Expiration carries forward from the original when not overridden
	assert.Equal(t, competency.ExpirationBiannual, successor.ExpirationType)
}

func TestReassignCarriesOriginalDefaults(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, func(a *models.Agency) { a.DefaultDueDateDays = 14 })
	user := seedClinician(t, db, agency.ID, nil)
	exam, _ := seedExam(t, db, nil)

	original := seedAssignment(t, db, user.ID, agency.ID, competency.TypeExam, exam.ID, func(a *competency.Assignment) {
		a.Status = competency.StatusCompleted
		a.AllowedAttempts = 2
	})

	successor, err := Reassign(db, original.ID, ReassignDetails{}, 7)
	require.NoError(t, err)

	assert.Equal(t, 2, successor.AllowedAttempts)
	require.NotNil(t, successor.DueDate)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 14), *successor.DueDate, time.Minute)
}

func TestReassignTwiceRejected(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	user := seedClinician(t, db, agency.ID, nil)
	exam, _ := seedExam(t, db, nil)

	original := seedAssignment(t, db, user.ID, agency.ID, competency.TypeExam, exam.ID, func(a *competency.Assignment) {
		a.Status = competency.StatusCompleted
	})

	_, err := Reassign(db, original.ID, ReassignDetails{}, 7)
	require.NoError(t, err)

	_, err = Reassign(db, original.ID, ReassignDetails{}, 7)
	assert.ErrorIs(t, err, ErrAlreadyReassigned)
}

func TestReassignMissingAssignment(t *testing.T) {
	db := setupTestDB(t)
	_, err := Reassign(db, 12345, ReassignDetails{}, 7)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}
