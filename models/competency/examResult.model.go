package competency

import "gorm.io/gorm"

// ExamResult stores one answer per (assignment, attempt, question).
// Re-submitting the same question within the same attempt updates the row;
// the unique index backs that upsert.
type ExamResult struct {
	gorm.Model
	AssignmentID      uint   `gorm:"uniqueIndex:idx_result_attempt_question;not null" json:"assignment_id"`
	ExamID            uint   `gorm:"index;not null" json:"exam_id"`
	Attempt           int    `gorm:"uniqueIndex:idx_result_attempt_question;not null" json:"attempt"` // 0-based
	QuestionVersionID uint   `gorm:"uniqueIndex:idx_result_attempt_question;not null" json:"question_version_id"`
	QuestionID        uint   `gorm:"index;not null" json:"question_id"`
	AnswerID          string `json:"answer_id"`
	Correct           bool   `gorm:"default:false" json:"correct"`
	TimeTaken         int    `gorm:"default:0" json:"time_taken"` // seconds
}
