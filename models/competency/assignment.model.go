package competency

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Assignment status values
const (
	StatusNotStarted       = "NOT_STARTED" // exams
	StatusPending          = "PENDING"     // modules, skill checklists, policies, documents
	StatusInProgress       = "IN_PROGRESS"
	StatusCompleted        = "COMPLETED"
	StatusFailed           = "FAILED"
	StatusFailedTimedOut   = "FAILED_TIMED_OUT"
	StatusProctoringReview = "PROCTORING_REVIEW"
	StatusDueDateExpired   = "DUE_DATE_EXPIRED"
	StatusArchived         = "ARCHIVED"
)

// Expiration policy values
const (
	ExpirationOneTime  = "ONE_TIME"
	ExpirationYearly   = "YEARLY"
	ExpirationBiannual = "BIANNUAL"
)

// Score status values recorded in the score history
const (
	ScorePassed = "PASSED"
	ScoreFailed = "FAILED"
)

// TerminalStatuses are states the due-date sweep must not touch
var TerminalStatuses = []string{
	StatusCompleted, StatusFailed, StatusFailedTimedOut,
	StatusProctoringReview, StatusDueDateExpired, StatusArchived,
}

// InitialStatus returns the state a fresh assignment of the given type starts in
func InitialStatus(competencyType string) string {
	if competencyType == TypeExam {
		return StatusNotStarted
	}
	return StatusPending
}

// ScoreEntry is one attempt's outcome in the assignment score history
type ScoreEntry struct {
	Attempt          int    `json:"attempt"`
	Score            int    `json:"score"`
	AssignmentStatus string `json:"assignment_status"`
	ScoreStatus      string `json:"score_status"`
}

// Assignment links one clinician to one competency item instance.
// One row per obligation; archival and reassignment are status transitions,
// rows are never physically deleted.
type Assignment struct {
	gorm.Model
	UserID         uint   `gorm:"index;not null" json:"user_id"`
	AgencyID       uint   `gorm:"index;not null" json:"agency_id"`
	CompetencyType string `gorm:"index;not null" json:"competency_type"`
	CompetencyID   uint   `gorm:"index;not null" json:"competency_id"`
	VersionID      uint   `json:"version_id"` // exam/module version referenced at assign time
	BundleID       *uint  `gorm:"index" json:"bundle_id"`

	Status          string     `gorm:"index;default:'NOT_STARTED'" json:"status"`
	DueDate         *time.Time `gorm:"index" json:"due_date"`
	ExpirationType  string     `gorm:"default:'YEARLY'" json:"expiration_type"`
	ExpiresOn       *time.Time `gorm:"index" json:"expires_on"`
	AllowedAttempts int        `gorm:"default:3" json:"allowed_attempts"`
	AttemptsUsed    int        `gorm:"default:0" json:"attempts_used"`

	AssignedOn time.Time  `json:"assigned_on"`
	StartedOn  *time.Time `json:"started_on"`
	FinishedOn *time.Time `json:"finished_on"`

	Score        *int   `json:"score"`
	ScoreHistory string `gorm:"type:text" json:"-"` // JSON array of ScoreEntry

	// Exam session state
	QuestionSet string     `gorm:"type:text" json:"-"` // JSON array of question version ids
	AttemptDue  *time.Time `json:"attempt_due"`

	CertificateCode      string     `json:"certificate_code"`
	CertificateExpiresOn *time.Time `json:"certificate_expires_on"`

	Reassigned bool `gorm:"default:false" json:"reassigned"`

	// ActiveKey is "<user>:<type>:<item>:<agency>" while the assignment is active
	// and NULL once archived or superseded. The unique index is what enforces the
	// one-active-assignment invariant; a duplicate-key error on insert means
	// "already assigned".
	ActiveKey *string `gorm:"uniqueIndex" json:"-"`

	// LockVersion guards racing mutations (answer submission, timeout sweep,
	// manual edits). Updates filter on the version they read and bump it;
	// zero rows affected means another writer won.
	LockVersion int  `gorm:"default:0" json:"-"`
	IsDeleted   bool `gorm:"default:false" json:"-"`
}

// BuildActiveKey derives the uniqueness key for an active assignment
func BuildActiveKey(userID uint, competencyType string, competencyID, agencyID uint) string {
	return fmt.Sprintf("%d:%s:%d:%d", userID, competencyType, competencyID, agencyID)
}

// ScoreEntries unmarshals the stored score history
func (a *Assignment) ScoreEntries() ([]ScoreEntry, error) {
	var entries []ScoreEntry
	if a.ScoreHistory == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(a.ScoreHistory), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// AppendScoreEntry adds one attempt outcome to the score history
func (a *Assignment) AppendScoreEntry(entry ScoreEntry) error {
	entries, err := a.ScoreEntries()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	a.ScoreHistory = string(raw)
	return nil
}

// QuestionSetIDs unmarshals the persisted question-version id list
func (a *Assignment) QuestionSetIDs() ([]uint, error) {
	var ids []uint
	if a.QuestionSet == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(a.QuestionSet), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetQuestionSetIDs persists the selected question-version id list
func (a *Assignment) SetQuestionSetIDs(ids []uint) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	a.QuestionSet = string(raw)
	return nil
}
