package services

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"comply/database"
	"comply/models"
	"comply/models/competency"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var emailSeq uint64

// setupTestDB opens an isolated in-memory database and runs the migrations
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps concurrent writers serialized on sqlite
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func seedAgency(t *testing.T, db *gorm.DB, mut func(*models.Agency)) models.Agency {
	t.Helper()
	agency := models.Agency{Name: "Vital Staffing"}
	if mut != nil {
		mut(&agency)
	}
	require.NoError(t, db.Create(&agency).Error)
	return agency
}

func seedClinician(t *testing.T, db *gorm.DB, agencyID uint, mut func(*models.User)) models.User {
	t.Helper()
	user := models.User{
		FirstName: "Dana",
		LastName:  "Reyes",
		Email:     fmt.Sprintf("clinician%d@example.com", atomic.AddUint64(&emailSeq, 1)),
		Role:      models.RoleClinician,
		Password:  "hashed",
		AgencyID:  agencyID,
	}
	if mut != nil {
		mut(&user)
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedExam(t *testing.T, db *gorm.DB, mut func(*competency.ExamVersion)) (competency.Exam, competency.ExamVersion) {
	t.Helper()
	exam := competency.Exam{Title: "Infection Control", Status: competency.ContentPublished}
	require.NoError(t, db.Create(&exam).Error)

	version := competency.ExamVersion{
		ExamID:          exam.ID,
		VersionNumber:   1,
		PassingScore:    70,
		AllowedAttempts: 3,
	}
	if mut != nil {
		mut(&version)
	}
	require.NoError(t, db.Create(&version).Error)
	return exam, version
}

// seedQuestion creates one question with three options a, b, c
func seedQuestion(t *testing.T, db *gorm.DB, examID uint, category, correct string) (competency.Question, competency.QuestionVersion) {
	t.Helper()
	question := competency.Question{ExamID: examID, Category: category}
	require.NoError(t, db.Create(&question).Error)

	qv := competency.QuestionVersion{
		QuestionID:    question.ID,
		VersionNumber: 1,
		Text:          "Which precaution applies?",
		CorrectAnswer: correct,
	}
	require.NoError(t, qv.SetOptions([]competency.AnswerOption{
		{ID: "a", Text: "Standard"},
		{ID: "b", Text: "Contact"},
		{ID: "c", Text: "Droplet"},
	}))
	require.NoError(t, db.Create(&qv).Error)
	return question, qv
}

func seedAssignment(t *testing.T, db *gorm.DB, userID, agencyID uint, competencyType string, competencyID uint, mut func(*competency.Assignment)) competency.Assignment {
	t.Helper()
	key := competency.BuildActiveKey(userID, competencyType, competencyID, agencyID)
	assignment := competency.Assignment{
		UserID:          userID,
		AgencyID:        agencyID,
		CompetencyType:  competencyType,
		CompetencyID:    competencyID,
		Status:          competency.InitialStatus(competencyType),
		ExpirationType:  competency.ExpirationYearly,
		AllowedAttempts: 3,
		AssignedOn:      time.Now(),
		ActiveKey:       &key,
	}
	if mut != nil {
		mut(&assignment)
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}
