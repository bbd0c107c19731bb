package services

import (
	"math/rand"
	"sort"
	"time"

	"comply/models"
	"comply/models/competency"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Time budget granted per question in an attempt
const QuestionTimeBudget = 3 * time.Minute

// How long an exam completion certificate stays valid
const CertificateValidity = time.Hour * 24 * 365

// StartResult describes the attempt window opened by StartExam
type StartResult struct {
	AssignmentID  uint      `json:"assignment_id"`
	Attempt       int       `json:"attempt"`
	QuestionCount int       `json:"question_count"`
	AttemptDue    time.Time `json:"attempt_due"`
}

// QuestionPayload is one question delivered to the exam taker. The correct
// answer never leaves the server.
type QuestionPayload struct {
	Index             int                       `json:"index"`
	Total             int                       `json:"total"`
	QuestionID        uint                      `json:"question_id"`
	QuestionVersionID uint                      `json:"question_version_id"`
	Text              string                    `json:"text"`
	Options           []competency.AnswerOption `json:"options"`
}

// SubmitResult is the outcome of one answer submission
type SubmitResult struct {
	Correct          bool   `json:"correct"`
	ExamResultLength int    `json:"exam_result_length"`
	Status           string `json:"status"`
	Score            *int   `json:"score"`
	Finished         bool   `json:"finished"`
}

// StartExam opens (or re-opens) an attempt window on an exam assignment.
// Allowed from NOT_STARTED or IN_PROGRESS while attempts remain. Selects the
// exam's most recent version, builds the question set, computes the time
// budget and persists the selected question-version ids so delivery is
// deterministic and resumable. A restart with answers already recorded for
// the current attempt keeps the persisted set and only extends the window.
func StartExam(db *gorm.DB, assignmentID, userID uint) (*StartResult, error) {
	var out *StartResult

	err := db.Transaction(func(tx *gorm.DB) error {
		a, err := loadExamAssignment(tx, assignmentID, userID)
		if err != nil {
			return err
		}
		if a.Status != competency.StatusNotStarted && a.Status != competency.StatusInProgress {
			return ErrWrongState
		}
		if a.AttemptsUsed >= a.AllowedAttempts {
			return ErrAttemptsExhausted
		}

		set, err := a.QuestionSetIDs()
		if err != nil {
			return err
		}
		versionID := a.VersionID

		// A restart mid-attempt resumes the persisted set; rebuilding it would
		// strand already-recorded answers outside the new set
		var answered int64
		if len(set) > 0 {
			err = tx.Model(&competency.ExamResult{}).
				Where("assignment_id = ? AND attempt = ?", a.ID, a.AttemptsUsed).
				Count(&answered).Error
			if err != nil {
				return err
			}
		}

		if len(set) == 0 || answered == 0 {
			var version competency.ExamVersion
			err = tx.Where("exam_id = ? AND is_deleted = ?", a.CompetencyID, false).
				Order("version_number desc").First(&version).Error
			if err != nil {
				return ErrNoQuestions
			}

			set, err = buildQuestionSet(tx, a.CompetencyID, version.QuestionCount, version.ShuffleQuestions)
			if err != nil {
				return err
			}
			versionID = version.ID
		}

		now := time.Now()
		budget := time.Duration(len(set)) * QuestionTimeBudget

		// First attempt runs from now; a re-start extends the prior window
		base := now
		if a.AttemptDue != nil {
			base = *a.AttemptDue
		}
		due := base.Add(budget)

		if err := a.SetQuestionSetIDs(set); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":       competency.StatusInProgress,
			"version_id":   versionID,
			"question_set": a.QuestionSet,
			"attempt_due":  due,
			"lock_version": a.LockVersion + 1,
		}
		if a.StartedOn == nil {
			updates["started_on"] = now
		}

		res := tx.Model(&competency.Assignment{}).
			Where("id = ? AND lock_version = ?", a.ID, a.LockVersion).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		out = &StartResult{
			AssignmentID:  a.ID,
			Attempt:       a.AttemptsUsed,
			QuestionCount: len(set),
			AttemptDue:    due,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// buildQuestionSet picks `requested` questions distributed proportionally
// across question categories: floor(requested/categories) from each, then
// round-robin over categories with spare questions. requested = 0 means the
// whole pool. Returns the latest question-version id per selected question.
func buildQuestionSet(tx *gorm.DB, examID uint, requested int, shuffle bool) ([]uint, error) {
	var questions []competency.Question
	err := tx.Where("exam_id = ? AND is_deleted = ?", examID, false).Order("id").Find(&questions).Error
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	questionIDs := make([]uint, len(questions))
	for i, q := range questions {
		questionIDs[i] = q.ID
	}

	// Latest version per question; questions without a version are unusable
	var versions []competency.QuestionVersion
	err = tx.Where("question_id IN ? AND is_deleted = ?", questionIDs, false).
		Order("question_id, version_number").Find(&versions).Error
	if err != nil {
		return nil, err
	}
	latest := make(map[uint]uint, len(questions)) // question id -> version id
	for _, v := range versions {
		latest[v.QuestionID] = v.ID
	}

	byCategory := make(map[string][]uint)
	for _, q := range questions {
		if _, ok := latest[q.ID]; !ok {
			continue
		}
		byCategory[q.Category] = append(byCategory[q.Category], q.ID)
	}
	if len(byCategory) == 0 {
		return nil, ErrNoQuestions
	}

	categories := make([]string, 0, len(byCategory))
	total := 0
	for cat, ids := range byCategory {
		categories = append(categories, cat)
		total += len(ids)
	}
	sort.Strings(categories)

	if requested <= 0 {
		requested = total
	}
	if requested > total {
		return nil, ErrNoQuestions
	}

	if shuffle {
		for _, cat := range categories {
			ids := byCategory[cat]
			rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		}
	}

	base := requested / len(categories)
	taken := make(map[string]int, len(categories))
	var selected []uint
	for _, cat := range categories {
		n := base
		if n > len(byCategory[cat]) {
			n = len(byCategory[cat])
		}
		selected = append(selected, byCategory[cat][:n]...)
		taken[cat] = n
	}

	// Round-robin remaining slots across categories with spares
	for len(selected) < requested {
		progressed := false
		for _, cat := range categories {
			if len(selected) == requested {
				break
			}
			if taken[cat] < len(byCategory[cat]) {
				selected = append(selected, byCategory[cat][taken[cat]])
				taken[cat]++
				progressed = true
			}
		}
		if !progressed {
			return nil, ErrNoQuestions
		}
	}

	if shuffle {
		rand.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })
	}

	set := make([]uint, len(selected))
	for i, qid := range selected {
		set[i] = latest[qid]
	}
	return set, nil
}

// NextQuestion returns the question at index = number of results already
// recorded for the current attempt. Delivery is strictly sequential: no
// skipping, no revisiting.
func NextQuestion(db *gorm.DB, assignmentID, userID uint) (*QuestionPayload, error) {
	a, err := loadExamAssignment(db, assignmentID, userID)
	if err != nil {
		return nil, err
	}
	if a.Status != competency.StatusInProgress {
		return nil, ErrWrongState
	}
	if a.AttemptDue == nil || time.Now().After(*a.AttemptDue) {
		return nil, ErrAttemptWindowElapsed
	}

	ids, err := a.QuestionSetIDs()
	if err != nil || len(ids) == 0 {
		return nil, ErrWrongState
	}

	var answered int64
	err = db.Model(&competency.ExamResult{}).
		Where("assignment_id = ? AND attempt = ?", a.ID, a.AttemptsUsed).
		Count(&answered).Error
	if err != nil {
		return nil, err
	}
	idx := int(answered)
	if idx >= len(ids) {
		return nil, ErrWrongState
	}

	var qv competency.QuestionVersion
	if err := db.First(&qv, ids[idx]).Error; err != nil {
		return nil, err
	}

	opts, err := qv.Options()
	if err != nil || len(opts) == 0 {
		return nil, ErrMalformedOptions
	}
	correctResolvable := false
	for _, opt := range opts {
		if opt.ID == "" {
			return nil, ErrMalformedOptions
		}
		if opt.ID == qv.CorrectAnswer {
			correctResolvable = true
		}
	}
	if !correctResolvable {
		return nil, ErrMalformedOptions
	}

	return &QuestionPayload{
		Index:             idx,
		Total:             len(ids),
		QuestionID:        qv.QuestionID,
		QuestionVersionID: qv.ID,
		Text:              qv.Text,
		Options:           opts,
	}, nil
}

// SubmitAnswer records one answer, idempotently per (assignment, attempt,
// question): re-submitting the same question updates the existing result.
// Submitting the last question of the set finalizes the attempt. The whole
// operation runs in one transaction; any failure rolls everything back.
func SubmitAnswer(db *gorm.DB, assignmentID, userID, questionVersionID uint, answerID string, timeTaken int) (*SubmitResult, error) {
	var out *SubmitResult

	err := db.Transaction(func(tx *gorm.DB) error {
		a, err := loadExamAssignment(tx, assignmentID, userID)
		if err != nil {
			return err
		}
		if a.Status != competency.StatusInProgress {
			return ErrWrongState
		}
		if a.AttemptDue == nil || time.Now().After(*a.AttemptDue) {
			return ErrAttemptWindowElapsed
		}

		ids, err := a.QuestionSetIDs()
		if err != nil {
			return err
		}
		inSet := false
		for _, id := range ids {
			if id == questionVersionID {
				inSet = true
				break
			}
		}
		if !inSet {
			return ErrQuestionNotInSet
		}

		var qv competency.QuestionVersion
		if err := tx.First(&qv, questionVersionID).Error; err != nil {
			return err
		}

		attempt := a.AttemptsUsed
		now := time.Now()

		// Server-side elapsed time once a prior result exists; the client
		// value is only trusted for the first answer of an attempt
		var last competency.ExamResult
		err = tx.Where("assignment_id = ? AND attempt = ?", a.ID, attempt).
			Order("created_at desc").First(&last).Error
		if err == nil {
			timeTaken = int(now.Sub(last.CreatedAt).Seconds())
		}

		correct := answerID == qv.CorrectAnswer

		var existing competency.ExamResult
		err = tx.Where("assignment_id = ? AND attempt = ? AND question_version_id = ?", a.ID, attempt, questionVersionID).
			First(&existing).Error
		if err == nil {
			existing.AnswerID = answerID
			existing.Correct = correct
			existing.TimeTaken = timeTaken
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
		} else {
			result := competency.ExamResult{
				AssignmentID:      a.ID,
				ExamID:            a.CompetencyID,
				Attempt:           attempt,
				QuestionVersionID: questionVersionID,
				QuestionID:        qv.QuestionID,
				AnswerID:          answerID,
				Correct:           correct,
				TimeTaken:         timeTaken,
			}
			if err := tx.Create(&result).Error; err != nil {
				return err
			}
		}

		var answered int64
		err = tx.Model(&competency.ExamResult{}).
			Where("assignment_id = ? AND attempt = ?", a.ID, attempt).
			Count(&answered).Error
		if err != nil {
			return err
		}

		if int(answered) < len(ids) {
			out = &SubmitResult{
				Correct:          correct,
				ExamResultLength: int(answered),
				Status:           a.Status,
				Score:            a.Score,
			}
			return nil
		}

		status, score, err := finalizeAttempt(tx, a, len(ids), now)
		if err != nil {
			return err
		}
		out = &SubmitResult{
			Correct:          correct,
			ExamResultLength: int(answered),
			Status:           status,
			Score:            &score,
			Finished:         true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// finalizeAttempt scores the current attempt from its recorded results and
// applies the completion transition. Scores are always recomputed from the
// rows, never incremented, so replays converge on the same state.
func finalizeAttempt(tx *gorm.DB, a *competency.Assignment, total int, now time.Time) (string, int, error) {
	var correctCount int64
	err := tx.Model(&competency.ExamResult{}).
		Where("assignment_id = ? AND attempt = ? AND correct = ?", a.ID, a.AttemptsUsed, true).
		Count(&correctCount).Error
	if err != nil {
		return "", 0, err
	}

	score := ceilPercent(int(correctCount), total)

	var version competency.ExamVersion
	if err := tx.First(&version, a.VersionID).Error; err != nil {
		return "", 0, err
	}
	var agency models.Agency
	if err := tx.First(&agency, a.AgencyID).Error; err != nil {
		return "", 0, err
	}

	passed := score >= version.PassingScore
	proctored := version.Proctoring && agency.EnableProctoring
	attemptsUsed := a.AttemptsUsed + 1

	var status string
	switch {
	case proctored:
		// Any completion of a proctored exam awaits human review
		status = competency.StatusProctoringReview
	case passed:
		status = competency.StatusCompleted
	case attemptsUsed < a.AllowedAttempts:
		status = competency.StatusInProgress
	default:
		status = competency.StatusFailed
	}

	scoreStatus := competency.ScoreFailed
	if passed {
		scoreStatus = competency.ScorePassed
	}
	if err := a.AppendScoreEntry(competency.ScoreEntry{
		Attempt:          a.AttemptsUsed,
		Score:            score,
		AssignmentStatus: status,
		ScoreStatus:      scoreStatus,
	}); err != nil {
		return "", 0, err
	}

	updates := map[string]interface{}{
		"status":        status,
		"attempts_used": attemptsUsed,
		"score":         score,
		"score_history": a.ScoreHistory,
		"lock_version":  a.LockVersion + 1,
	}
	switch status {
	case competency.StatusCompleted:
		updates["finished_on"] = now
		updates["expires_on"] = ExpiryDate(a.ExpirationType, now)
		updates["certificate_code"] = uuid.NewString()
		updates["certificate_expires_on"] = now.Add(CertificateValidity)
	case competency.StatusFailed, competency.StatusProctoringReview:
		updates["finished_on"] = now
	}

	res := tx.Model(&competency.Assignment{}).
		Where("id = ? AND lock_version = ?", a.ID, a.LockVersion).
		Updates(updates)
	if res.Error != nil {
		return "", 0, res.Error
	}
	if res.RowsAffected == 0 {
		return "", 0, ErrConflict
	}
	return status, score, nil
}

// FinalizeTimedOutAttempt applies attempt-exhaustion to an IN_PROGRESS exam
// whose window lapsed, scoring whatever results exist. With attempts left the
// assignment goes back to IN_PROGRESS with a cleared window (the next start
// opens a fresh one); exhausted it becomes FAILED_TIMED_OUT, or
// PROCTORING_REVIEW when proctored.
func FinalizeTimedOutAttempt(db *gorm.DB, a *competency.Assignment) error {
	return db.Transaction(func(tx *gorm.DB) error {
		ids, err := a.QuestionSetIDs()
		if err != nil {
			return err
		}
		total := len(ids)
		if total == 0 {
			total = 1
		}

		var correctCount int64
		err = tx.Model(&competency.ExamResult{}).
			Where("assignment_id = ? AND attempt = ? AND correct = ?", a.ID, a.AttemptsUsed, true).
			Count(&correctCount).Error
		if err != nil {
			return err
		}
		score := ceilPercent(int(correctCount), total)

		var version competency.ExamVersion
		if err := tx.First(&version, a.VersionID).Error; err != nil {
			return err
		}
		var agency models.Agency
		if err := tx.First(&agency, a.AgencyID).Error; err != nil {
			return err
		}
		proctored := version.Proctoring && agency.EnableProctoring

		attemptsUsed := a.AttemptsUsed + 1
		now := time.Now()

		var status string
		switch {
		case attemptsUsed < a.AllowedAttempts:
			status = competency.StatusInProgress
		case proctored:
			status = competency.StatusProctoringReview
		default:
			status = competency.StatusFailedTimedOut
		}

		if err := a.AppendScoreEntry(competency.ScoreEntry{
			Attempt:          a.AttemptsUsed,
			Score:            score,
			AssignmentStatus: status,
			ScoreStatus:      competency.ScoreFailed,
		}); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":        status,
			"attempts_used": attemptsUsed,
			"score":         score,
			"score_history": a.ScoreHistory,
			"lock_version":  a.LockVersion + 1,
		}
		if status == competency.StatusInProgress {
			updates["attempt_due"] = gorm.Expr("NULL")
		} else {
			updates["finished_on"] = now
		}

		res := tx.Model(&competency.Assignment{}).
			Where("id = ? AND lock_version = ?", a.ID, a.LockVersion).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A live submission finalized this attempt first
			return ErrConflict
		}
		return nil
	})
}

// ResolveProctoring records the human review verdict on an exam sitting in
// PROCTORING_REVIEW. Pass completes the assignment with a certificate; fail
// returns it to IN_PROGRESS while attempts remain, else FAILED.
func ResolveProctoring(db *gorm.DB, assignmentID uint, passed bool, reviewerID uint) (*competency.Assignment, error) {
	var a competency.Assignment
	err := db.Where("id = ? AND competency_type = ? AND is_deleted = ?", assignmentID, competency.TypeExam, false).
		First(&a).Error
	if err != nil {
		return nil, ErrAssignmentNotFound
	}
	if a.Status != competency.StatusProctoringReview {
		return nil, ErrWrongState
	}

	now := time.Now()
	var status string
	updates := map[string]interface{}{
		"lock_version": a.LockVersion + 1,
	}
	switch {
	case passed:
		status = competency.StatusCompleted
		updates["expires_on"] = ExpiryDate(a.ExpirationType, now)
		updates["certificate_code"] = uuid.NewString()
		updates["certificate_expires_on"] = now.Add(CertificateValidity)
	case a.AttemptsUsed < a.AllowedAttempts:
		status = competency.StatusInProgress
		updates["attempt_due"] = gorm.Expr("NULL")
		updates["finished_on"] = gorm.Expr("NULL")
	default:
		status = competency.StatusFailed
	}
	updates["status"] = status

	res := db.Model(&competency.Assignment{}).
		Where("id = ? AND lock_version = ?", a.ID, a.LockVersion).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConflict
	}

	LogEvent(db, models.UserLog{
		EventType:      models.LogEventUpdated,
		Description:    "Proctoring review resolved: " + status,
		CompetencyType: a.CompetencyType,
		CompetencyID:   a.CompetencyID,
		UserID:         a.UserID,
		InitiatorID:    reviewerID,
		AssignmentID:   a.ID,
	})

	a.Status = status
	return &a, nil
}

// loadExamAssignment fetches an exam assignment and checks ownership
func loadExamAssignment(tx *gorm.DB, assignmentID, userID uint) (*competency.Assignment, error) {
	var a competency.Assignment
	err := tx.Where("id = ? AND competency_type = ? AND is_deleted = ?", assignmentID, competency.TypeExam, false).
		First(&a).Error
	if err != nil {
		return nil, ErrAssignmentNotFound
	}
	if a.UserID != userID {
		return nil, ErrNotOwner
	}
	return &a, nil
}

// ceilPercent computes ceil(correct/total*100)
func ceilPercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*100 + total - 1) / total
}
