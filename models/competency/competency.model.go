package competency

import (
	"encoding/json"

	"gorm.io/gorm"
)

// Competency types
const (
	TypeExam           = "EXAM"
	TypeModule         = "MODULE"
	TypeSkillChecklist = "SKILL_CHECKLIST"
	TypePolicy         = "POLICY"
	TypeDocument       = "DOCUMENT"
)

// Content status values
const (
	ContentDraft     = "DRAFT"
	ContentPublished = "PUBLISHED"
	ContentArchived  = "ARCHIVED"
)

// AllTypes lists every competency type, in sweep order
var AllTypes = []string{TypeExam, TypeModule, TypeSkillChecklist, TypePolicy, TypeDocument}

// Exam is a versioned competency item. Content changes create a new ExamVersion,
// assignments always reference the version that was current when the exam started.
type Exam struct {
	gorm.Model
	Title     string `gorm:"not null" json:"title"`
	AgencyID  *uint  `gorm:"index" json:"agency_id"` // nil = global
	Status    string `gorm:"default:'DRAFT'" json:"status"`
	IsDeleted bool   `gorm:"default:false" json:"-"`
}

// ExamVersion carries the exam content defaults used when assigning and scoring
type ExamVersion struct {
	gorm.Model
	ExamID           uint   `gorm:"index;not null" json:"exam_id"`
	VersionNumber    int    `gorm:"not null" json:"version_number"`
	PassingScore     int    `gorm:"default:70" json:"passing_score"` // percent
	QuestionCount    int    `gorm:"default:0" json:"question_count"` // questions delivered per attempt
	ShuffleQuestions bool   `gorm:"default:false" json:"shuffle_questions"`
	Proctoring       bool   `gorm:"default:false" json:"proctoring"`
	AllowedAttempts  int    `gorm:"default:3" json:"allowed_attempts"`
	ExpirationType   string `gorm:"default:''" json:"expiration_type"`
	IsDeleted        bool   `gorm:"default:false" json:"-"`
}

// Question groups question versions under an exam and carries the category
// used for proportional question-set distribution
type Question struct {
	gorm.Model
	ExamID    uint   `gorm:"index;not null" json:"exam_id"`
	Category  string `gorm:"default:''" json:"category"`
	IsDeleted bool   `gorm:"default:false" json:"-"`
}

// AnswerOption is one selectable answer inside a question version
type AnswerOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionVersion is the immutable content of a question at one revision
type QuestionVersion struct {
	gorm.Model
	QuestionID    uint   `gorm:"index;not null" json:"question_id"`
	VersionNumber int    `gorm:"not null" json:"version_number"`
	Text          string `gorm:"type:text" json:"text"`
	AnswerOptions string `gorm:"type:text" json:"-"` // JSON array of AnswerOption
	CorrectAnswer string `gorm:"not null" json:"-"`  // id of the correct AnswerOption
	IsDeleted     bool   `gorm:"default:false" json:"-"`
}

// Options unmarshals the stored answer options
func (qv *QuestionVersion) Options() ([]AnswerOption, error) {
	var opts []AnswerOption
	if qv.AnswerOptions == "" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(qv.AnswerOptions), &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// SetOptions marshals answer options back onto the row
func (qv *QuestionVersion) SetOptions(opts []AnswerOption) error {
	raw, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	qv.AnswerOptions = string(raw)
	return nil
}

// ModuleDefinition is a versioned training module competency
type ModuleDefinition struct {
	gorm.Model
	Title           string `gorm:"not null" json:"title"`
	AgencyID        *uint  `gorm:"index" json:"agency_id"`
	Status          string `gorm:"default:'DRAFT'" json:"status"`
	VersionNumber   int    `gorm:"default:1" json:"version_number"`
	AllowedAttempts int    `gorm:"default:3" json:"allowed_attempts"`
	ExpirationType  string `gorm:"default:''" json:"expiration_type"`
	IsDeleted       bool   `gorm:"default:false" json:"-"`
}

// SkillChecklist is a versioned self-assessment checklist competency
type SkillChecklist struct {
	gorm.Model
	Title          string `gorm:"not null" json:"title"`
	AgencyID       *uint  `gorm:"index" json:"agency_id"`
	Status         string `gorm:"default:'DRAFT'" json:"status"`
	VersionNumber  int    `gorm:"default:1" json:"version_number"`
	ExpirationType string `gorm:"default:''" json:"expiration_type"`
	IsDeleted      bool   `gorm:"default:false" json:"-"`
}

// Policy is an unversioned sign-off competency
type Policy struct {
	gorm.Model
	Title          string `gorm:"not null" json:"title"`
	AgencyID       *uint  `gorm:"index" json:"agency_id"`
	Status         string `gorm:"default:'DRAFT'" json:"status"`
	ExpirationType string `gorm:"default:''" json:"expiration_type"`
	IsDeleted      bool   `gorm:"default:false" json:"-"`
}

// DocumentItem is an unversioned read-and-acknowledge competency
type DocumentItem struct {
	gorm.Model
	Title          string `gorm:"not null" json:"title"`
	AgencyID       *uint  `gorm:"index" json:"agency_id"`
	Status         string `gorm:"default:'DRAFT'" json:"status"`
	ExpirationType string `gorm:"default:''" json:"expiration_type"`
	IsDeleted      bool   `gorm:"default:false" json:"-"`
}
