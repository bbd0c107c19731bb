package services

import (
	"testing"

	"comply/models/competency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedBundle(t *testing.T, db *gorm.DB, agencyID *uint, items []competency.BundleItem) competency.Bundle {
	t.Helper()
	bundle := competency.Bundle{Name: "Onboarding", AgencyID: agencyID, Status: competency.ContentPublished}
	require.NoError(t, db.Create(&bundle).Error)
	for i := range items {
		items[i].BundleID = bundle.ID
		require.NoError(t, db.Create(&items[i]).Error)
	}
	return bundle
}

func TestExpandBundlesMergesAndDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)

	bundle := seedBundle(t, db, &agency.ID, []competency.BundleItem{
		{CompetencyType: competency.TypeExam, CompetencyID: 1},
		{CompetencyType: competency.TypeModule, CompetencyID: 2},
	})

	items, err := ExpandBundles(db, []Selection{
		{CompetencyType: competency.TypeExam, CompetencyID: 1}, // also in the bundle
		{CompetencyType: competency.TypePolicy, CompetencyID: 3},
	}, []uint{bundle.ID}, agency.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// The direct selection wins the duplicate, so it carries no bundle tag
	assert.Equal(t, competency.TypeExam, items[0].CompetencyType)
	assert.Nil(t, items[0].BundleID)

	assert.Equal(t, competency.TypePolicy, items[1].CompetencyType)
	assert.Nil(t, items[1].BundleID)

	assert.Equal(t, competency.TypeModule, items[2].CompetencyType)
	require.NotNil(t, items[2].BundleID)
	assert.Equal(t, bundle.ID, *items[2].BundleID)
}

func TestExpandBundlesScoping(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)
	other := seedAgency(t, db, nil)

	global := seedBundle(t, db, nil, []competency.BundleItem{
		{CompetencyType: competency.TypeExam, CompetencyID: 10},
	})
	foreign := seedBundle(t, db, &other.ID, []competency.BundleItem{
		{CompetencyType: competency.TypeExam, CompetencyID: 11},
	})

	items, err := ExpandBundles(db, nil, []uint{global.ID, foreign.ID}, agency.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint(10), items[0].CompetencyID)
}

func TestExpandBundlesNoBundles(t *testing.T) {
	db := setupTestDB(t)
	agency := seedAgency(t, db, nil)

	items, err := ExpandBundles(db, []Selection{
		{CompetencyType: competency.TypeDocument, CompetencyID: 5},
	}, nil, agency.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, competency.TypeDocument, items[0].CompetencyType)
}
