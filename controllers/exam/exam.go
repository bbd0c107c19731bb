package controllers

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"time"

	"comply/database"
	"comply/middleware"
	"comply/models/competency"
	"comply/services"
	"comply/utils"
	examValidator "comply/validators/exam"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// StartExam opens an attempt window and returns the question set descriptor
func StartExam(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	assignmentID := c.Locals("assignmentID").(uint)

	result, err := services.StartExam(database.Database.Db, assignmentID, userID)
	if err != nil {
		return serviceErr(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exam started!", result)
}

// GetNextQuestion delivers the next undelivered question of the current attempt
func GetNextQuestion(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	assignmentID := c.Locals("assignmentID").(uint)

	question, err := services.NextQuestion(database.Database.Db, assignmentID, userID)
	if err != nil {
		return serviceErr(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Question fetched!", question)
}

// SubmitAnswer records one answer; the last answer of the set finalizes the
// attempt. A completed exam triggers certificate generation in the background.
func SubmitAnswer(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	assignmentID := c.Locals("assignmentID").(uint)
	reqData := c.Locals("validatedAnswer").(*examValidator.SubmitAnswerBody)

	result, err := services.SubmitAnswer(
		database.Database.Db,
		assignmentID,
		userID,
		reqData.QuestionVersionID,
		reqData.AnswerID,
		reqData.TimeTaken,
	)
	if err != nil {
		return serviceErr(c, err)
	}

	if result.Status == competency.StatusCompleted {
		go func(id uint) {
			if _, err := utils.GenerateCertificate(competency.TypeExam, id); err != nil {
				log.Printf("[EXAM] Certificate generation failed for assignment %d: %v", id, err)
			}
		}(assignmentID)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answer submitted!", result)
}

// ExamTimer streams one timeLeft tick per second until the attempt window
// elapses or the client disconnects, then a terminal examEnded event.
func ExamTimer(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	assignmentID := c.Locals("assignmentID").(uint)

	var assignment competency.Assignment
	err := database.Database.Db.
		Where("id = ? AND competency_type = ? AND is_deleted = ?", assignmentID, competency.TypeExam, false).
		First(&assignment).Error
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Assignment not found!", nil)
	}
	if assignment.UserID != userID {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Assignment does not belong to you!", nil)
	}
	if assignment.Status != competency.StatusInProgress || assignment.AttemptDue == nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "No attempt in progress!", nil)
	}

	due := *assignment.AttemptDue

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		for {
			timeLeft := int(time.Until(due).Seconds())
			if timeLeft <= 0 {
				fmt.Fprintf(w, "event: examEnded\ndata: 0\n\n")
				w.Flush()
				return
			}
			fmt.Fprintf(w, "event: timeLeft\ndata: %d\n\n", timeLeft)
			if err := w.Flush(); err != nil {
				return // client disconnected
			}
			time.Sleep(time.Second)
		}
	}))

	return nil
}

// MarkModuleCompleted is the admin override completing a module or skill
// checklist outside the normal flow
func MarkModuleCompleted(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	agencyID := c.Locals("agencyId").(uint)
	assignmentID := c.Locals("assignmentID").(uint)
	reqData := c.Locals("validatedMarkComplete").(*examValidator.MarkCompleteBody)
	finishedOn := c.Locals("finishedOn").(time.Time)

	assignment, err := services.MarkModuleCompleted(
		database.Database.Db,
		assignmentID,
		agencyID,
		finishedOn,
		reqData.ExpirationType,
		userID,
	)
	if err != nil {
		return serviceErr(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Assignment marked completed!", assignment)
}

// ResolveProctoringReview records the human review verdict on a proctored exam
func ResolveProctoringReview(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	assignmentID := c.Locals("assignmentID").(uint)
	reqData := c.Locals("validatedReview").(*examValidator.ProctoringReviewBody)

	assignment, err := services.ResolveProctoring(database.Database.Db, assignmentID, *reqData.Passed, userID)
	if err != nil {
		return serviceErr(c, err)
	}

	if assignment.Status == competency.StatusCompleted {
		go func(id uint) {
			if _, err := utils.GenerateCertificate(competency.TypeExam, id); err != nil {
				log.Printf("[EXAM] Certificate generation failed for assignment %d: %v", id, err)
			}
		}(assignment.ID)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Proctoring review recorded!", assignment)
}

// serviceErr maps service precondition errors onto the JSON envelope
func serviceErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrAssignmentNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, err.Error(), nil)
	case errors.Is(err, services.ErrNotOwner):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, err.Error(), nil)
	case errors.Is(err, services.ErrConflict):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, err.Error(), nil)
	case errors.Is(err, services.ErrWrongState),
		errors.Is(err, services.ErrAttemptsExhausted),
		errors.Is(err, services.ErrAttemptWindowElapsed),
		errors.Is(err, services.ErrNoQuestions),
		errors.Is(err, services.ErrQuestionNotInSet),
		errors.Is(err, services.ErrMalformedOptions):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, err.Error(), nil)
	default:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Something went wrong!", nil)
	}
}
