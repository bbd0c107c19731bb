package database

import (
	"testing"

	"comply/models/competency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&competency.Question{}, &competency.QuestionVersion{}))
	return db
}

func TestBackfillAnswerOptionIDs(t *testing.T) {
	db := openTestDB(t)

	// Legacy row: options without ids, correct answer referencing the empty id
	legacy := competency.QuestionVersion{QuestionID: 1, VersionNumber: 1, Text: "legacy"}
	require.NoError(t, legacy.SetOptions([]competency.AnswerOption{
		{Text: "First"},
		{Text: "Second"},
	}))
	legacy.CorrectAnswer = ""
	require.NoError(t, db.Create(&legacy).Error)

	// Healthy row stays untouched
	healthy := competency.QuestionVersion{QuestionID: 2, VersionNumber: 1, Text: "healthy", CorrectAnswer: "b"}
	require.NoError(t, healthy.SetOptions([]competency.AnswerOption{
		{ID: "a", Text: "First"},
		{ID: "b", Text: "Second"},
	}))
	require.NoError(t, db.Create(&healthy).Error)

	require.NoError(t, BackfillAnswerOptionIDs(db))

	require.NoError(t, db.First(&legacy, legacy.ID).Error)
	opts, err := legacy.Options()
	require.NoError(t, err)
	require.Len(t, opts, 2)
	for _, opt := range opts {
		assert.NotEmpty(t, opt.ID)
	}
	assert.NotEqual(t, opts[0].ID, opts[1].ID)

	// The correct-answer reference follows the minted id
	resolvable := false
	for _, opt := range opts {
		if opt.ID == legacy.CorrectAnswer {
			resolvable = true
		}
	}
	assert.True(t, resolvable)

	require.NoError(t, db.First(&healthy, healthy.ID).Error)
	assert.Equal(t, "b", healthy.CorrectAnswer)
	opts, err = healthy.Options()
	require.NoError(t, err)
	assert.Equal(t, "a", opts[0].ID)
}
