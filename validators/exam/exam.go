package examValidator

import (
	"strconv"
	"strings"
	"time"

	"comply/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// AssignmentID validates the :id route param
func AssignmentID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		idStr := strings.TrimSpace(c.Params("id"))
		if idStr == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Assignment ID is required!", nil)
		}

		id, err := strconv.Atoi(idStr)
		if err != nil || id <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Assignment ID!", nil)
		}

		c.Locals("assignmentID", uint(id))
		return c.Next()
	}
}

// SubmitAnswerBody is one answer submission
type SubmitAnswerBody struct {
	QuestionVersionID uint   `json:"question_version_id" validate:"required"`
	AnswerID          string `json:"answer_id" validate:"required"`
	TimeTaken         int    `json:"time_taken" validate:"gte=0"`
}

// SubmitAnswer validates the answer submission body
func SubmitAnswer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(SubmitAnswerBody)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if err := validate.Struct(reqData); err != nil {
			errors := make(map[string]string)
			for _, fieldErr := range err.(validator.ValidationErrors) {
				errors[strings.ToLower(fieldErr.Field())] = "Invalid value for " + fieldErr.Field() + "!"
			}
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedAnswer", reqData)
		return c.Next()
	}
}

// MarkCompleteBody is the admin completion override payload
type MarkCompleteBody struct {
	FinishedOn     string `json:"finished_on" validate:"required"`
	ExpirationType string `json:"expiration_type" validate:"omitempty,oneof=ONE_TIME YEARLY BIANNUAL"`
}

// MarkComplete validates the completion override body and parses the date
func MarkComplete() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(MarkCompleteBody)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if err := validate.Struct(reqData); err != nil {
			errors := make(map[string]string)
			for _, fieldErr := range err.(validator.ValidationErrors) {
				errors[strings.ToLower(fieldErr.Field())] = "Invalid value for " + fieldErr.Field() + "!"
			}
			return middleware.ValidationErrorResponse(c, errors)
		}

		finishedOn, err := time.Parse(time.RFC3339, reqData.FinishedOn)
		if err != nil {
			finishedOn, err = time.Parse("2006-01-02", reqData.FinishedOn)
			if err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid finished_on date!", nil)
			}
		}

		c.Locals("validatedMarkComplete", reqData)
		c.Locals("finishedOn", finishedOn)
		return c.Next()
	}
}

// ProctoringReviewBody records the human review verdict
type ProctoringReviewBody struct {
	Passed *bool `json:"passed" validate:"required"`
}

// ProctoringReview validates the review verdict body
func ProctoringReview() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ProctoringReviewBody)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if reqData.Passed == nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Verdict is required!", nil)
		}

		c.Locals("validatedReview", reqData)
		return c.Next()
	}
}
