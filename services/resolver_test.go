package services

import (
	"testing"

	"comply/models"
	"comply/models/competency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTargetsEmptySpecMatchesNobody(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	seedClinician(t, db, agency.ID, nil)

	users, err := ResolveTargets(db, TargetSpec{}, agency.ID)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestResolveTargetsCriteriaCombineWithOr(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)

	dept := models.Department{AgencyID: agency.ID, Name: "ICU"}
	require.NoError(t, db.Create(&dept).Error)
	spec := models.Specialty{AgencyID: agency.ID, Name: "Oncology"}
	require.NoError(t, db.Create(&spec).Error)

	inDept := seedClinician(t, db, agency.ID, func(u *models.User) { u.DepartmentID = &dept.ID })
	inSpec := seedClinician(t, db, agency.ID, func(u *models.User) { u.SpecialtyID = &spec.ID })
	inBoth := seedClinician(t, db, agency.ID, func(u *models.User) {
		u.DepartmentID = &dept.ID
		u.SpecialtyID = &spec.ID
	})
	seedClinician(t, db, agency.ID, nil) // matches nothing

	users, err := ResolveTargets(db, TargetSpec{
		Departments: []uint{dept.ID},
		Specialties: []uint{spec.ID},
	}, agency.ID)
	require.NoError(t, err)
	require.Len(t, users, 3)

	ids := make(map[uint]bool)
	for _, u := range users {
		ids[u.User.ID] = true
	}
	assert.True(t, ids[inDept.ID])
	assert.True(t, ids[inSpec.ID])
	assert.True(t, ids[inBoth.ID])
}

func TestResolveTargetsExcludesOtherAgenciesAndRoles(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	other := seedAgency(t, db, nil)

	wanted := seedClinician(t, db, agency.ID, nil)
	foreign := seedClinician(t, db, other.ID, nil)
	admin := seedClinician(t, db, agency.ID, func(u *models.User) { u.Role = models.RoleAgencyAdmin })

	users, err := ResolveTargets(db, TargetSpec{
		Users: []uint{wanted.ID, foreign.ID, admin.ID},
	}, agency.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, wanted.ID, users[0].User.ID)
}

func TestResolveTargetsPrefetchesActiveLinks(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	user := seedClinician(t, db, agency.ID, nil)
	exam, _ := seedExam(t, db, nil)

	seedAssignment(t, db, user.ID, agency.ID, competency.TypeExam, exam.ID, nil)
	// Archived assignment releases the active slot
	seedAssignment(t, db, user.ID, agency.ID, competency.TypePolicy, 7, func(a *competency.Assignment) {
		a.Status = competency.StatusArchived
		a.ActiveKey = nil
	})

	users, err := ResolveTargets(db, TargetSpec{Users: []uint{user.ID}}, agency.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)

	assert.True(t, users[0].HasActive(competency.TypeExam, exam.ID))
	assert.False(t, users[0].HasActive(competency.TypePolicy, 7))
}
