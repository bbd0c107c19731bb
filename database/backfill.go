package database

import (
	"log"

	"comply/models/competency"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BackfillAnswerOptionIDs repairs question versions whose answer options are
// missing a stable id. Early content imports produced options without ids;
// question delivery assumes well-formed options and errors on them, so the
// repair happens here once at migration time instead of on every read.
//
// When the option being repaired is the one the correct-answer reference
// points at, the reference is updated to the newly minted id so the correct
// option always stays resolvable.
func BackfillAnswerOptionIDs(db *gorm.DB) error {
	var versions []competency.QuestionVersion
	if err := db.Where("is_deleted = ?", false).Find(&versions).Error; err != nil {
		return err
	}

	repaired := 0
	for i := range versions {
		qv := &versions[i]

		opts, err := qv.Options()
		if err != nil {
			log.Printf("[MIGRATION] Skipping question version %d: unreadable options: %v", qv.ID, err)
			continue
		}

		changed := false
		for j := range opts {
			if opts[j].ID != "" {
				continue
			}
			newID := uuid.NewString()
			if qv.CorrectAnswer == opts[j].ID {
				qv.CorrectAnswer = newID
			}
			opts[j].ID = newID
			changed = true
		}

		if !changed {
			continue
		}

		if err := qv.SetOptions(opts); err != nil {
			return err
		}
		if err := db.Model(qv).Updates(map[string]interface{}{
			"answer_options": qv.AnswerOptions,
			"correct_answer": qv.CorrectAnswer,
		}).Error; err != nil {
			return err
		}
		repaired++
	}

	if repaired > 0 {
		log.Printf("[MIGRATION] Backfilled answer option ids on %d question versions", repaired)
	}
	return nil
}
