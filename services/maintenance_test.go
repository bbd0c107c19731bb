package services

import (
	"testing"
	"time"

	"comply/models"
	"comply/models/competency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepDueDatesExpiresOverdueWork(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	user := seedClinician(t, db, agency.ID, nil)

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)

	overdue := seedAssignment(t, db, user.ID, agency.ID, competency.TypeModule, 1, func(a *competency.Assignment) {
		a.DueDate = &past
	})
	onTime := seedAssignment(t, db, user.ID, agency.ID, competency.TypeModule, 2, func(a *competency.Assignment) {
		a.DueDate = &future
	})
	// Completed work is terminal; the sweep must leave it alone
	done := seedAssignment(t, db, user.ID, agency.ID, competency.TypeModule, 3, func(a *competency.Assignment) {
		a.DueDate = &past
		a.Status = competency.StatusCompleted
	})

	swept, err := SweepDueDates(db, time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	require.NoError(t, db.First(&overdue, overdue.ID).Error)
	assert.Equal(t, competency.StatusDueDateExpired, overdue.Status)

	require.NoError(t, db.First(&onTime, onTime.ID).Error)
	assert.Equal(t, competency.StatusPending, onTime.Status)

	require.NoError(t, db.First(&done, done.ID).Error)
	assert.Equal(t, competency.StatusCompleted, done.Status)
}

func TestSweepDueDatesHonorsBatchLimit(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	user := seedClinician(t, db, agency.ID, nil)

	past := time.Now().Add(-24 * time.Hour)
	for i := uint(1); i <= 5; i++ {
		seedAssignment(t, db, user.ID, agency.ID, competency.TypePolicy, i, func(a *competency.Assignment) {
			a.DueDate = &past
		})
	}

	swept, err := SweepDueDates(db, time.Now(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, swept)

	// The backlog converges on the next run
	swept, err = SweepDueDates(db, time.Now(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)
}

func TestSweepExamTimeouts(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	user := seedClinician(t, db, agency.ID, nil)
	exam, version := seedExam(t, db, nil)

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	lapsed := seedAssignment(t, db, user.ID, agency.ID, competency.TypeExam, exam.ID, func(a *competency.Assignment) {
		a.Status = competency.StatusInProgress
		a.VersionID = version.ID
		a.AttemptDue = &past
		a.AllowedAttempts = 1
	})
	live := seedAssignment(t, db, user.ID, agency.ID, competency.TypeExam, exam.ID+100, func(a *competency.Assignment) {
		a.Status = competency.StatusInProgress
		a.VersionID = version.ID
		a.AttemptDue = &future
	})

	swept, err := SweepExamTimeouts(db, time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	require.NoError(t, db.First(&lapsed, lapsed.ID).Error)
	assert.Equal(t, competency.StatusFailedTimedOut, lapsed.Status)

	require.NoError(t, db.First(&live, live.ID).Error)
	assert.Equal(t, competency.StatusInProgress, live.Status)
}

func TestSweepExpiringAssignments(t *testing.T) {
	db := setupTestDB(t)
	optedIn := seedAgency(t, db, func(a *models.Agency) { a.AutoReassignExpiring = true })
	optedOut := seedAgency(t, db, nil)

	u1 := seedClinician(t, db, optedIn.ID, nil)
	u2 := seedClinician(t, db, optedOut.ID, nil)
	exam, _ := seedExam(t, db, nil)

	soon := time.Now().AddDate(0, 0, 10)
	far := time.Now().AddDate(0, 6, 0)

	expiring := seedAssignment(t, db, u1.ID, optedIn.ID, competency.TypeExam, exam.ID, func(a *competency.Assignment) {
		a.Status = competency.StatusCompleted
		a.ExpiresOn = &soon
	})
	notYet := seedAssignment(t, db, u1.ID, optedIn.ID, competency.TypeModule, 50, func(a *competency.Assignment) {
		a.Status = competency.StatusCompleted
		a.ExpiresOn = &far
	})
	foreign := seedAssignment(t, db, u2.ID, optedOut.ID, competency.TypeExam, exam.ID, func(a *competency.Assignment) {
		a.Status = competency.StatusCompleted
		a.ExpiresOn = &soon
	})

	reassigned, err := SweepExpiringAssignments(db, time.Now(), 45, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, reassigned)

	require.NoError(t, db.First(&expiring, expiring.ID).Error)
	assert.True(t, expiring.Reassigned)

	require.NoError(t, db.First(&notYet, notYet.ID).Error)
	assert.False(t, notYet.Reassigned)

	require.NoError(t, db.First(&foreign, foreign.ID).Error)
	assert.False(t, foreign.Reassigned)

	// A second run finds nothing: the expiring record is already superseded
	reassigned, err = SweepExpiringAssignments(db, time.Now(), 45, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, reassigned)
}
