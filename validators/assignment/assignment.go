package assignmentValidator

import (
	"strconv"
	"strings"

	"comply/middleware"
	"comply/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// AssignBody is the bulk assignment request payload
type AssignBody struct {
	Targets    services.TargetSpec      `json:"targets"`
	Selections []services.Selection     `json:"selections" validate:"dive"`
	BundleIDs  []uint                   `json:"bundle_ids"`
	Details    services.DetailOverrides `json:"details"`
}

// AssignCompetencies validates the bulk assignment request body
func AssignCompetencies() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(AssignBody)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.Targets.IsEmpty() {
			errors["targets"] = "At least one targeting criterion is required!"
		}
		if len(reqData.Selections) == 0 && len(reqData.BundleIDs) == 0 {
			errors["selections"] = "Select at least one competency or bundle!"
		}
		if err := validate.Struct(reqData); err != nil {
			for _, fieldErr := range err.(validator.ValidationErrors) {
				errors[strings.ToLower(fieldErr.Field())] = "Invalid value for " + fieldErr.Field() + "!"
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedAssign", reqData)
		return c.Next()
	}
}

// ATSAssignBody is the ATS-facing assignment request payload
type ATSAssignBody struct {
	UserIDs    []uint               `json:"user_ids" validate:"required,min=1"`
	Selections []services.Selection `json:"selections" validate:"required,min=1,dive"`
}

// AssignCompetenciesATS validates the ATS assignment request body
func AssignCompetenciesATS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ATSAssignBody)
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

		c.Locals("validatedATSAssign", reqData)
		return c.Next()
	}
}

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

// EditDetails validates the assignment details update body
func EditDetails() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(services.DetailOverrides)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if reqData.DueDate == nil && reqData.AllowedAttempts == nil && reqData.ExpirationType == nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Nothing to update!", nil)
		}
		if err := validate.Struct(reqData); err != nil {
			errors := make(map[string]string)
			for _, fieldErr := range err.(validator.ValidationErrors) {
				errors[strings.ToLower(fieldErr.Field())] = "Invalid value for " + fieldErr.Field() + "!"
			}
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedDetails", reqData)
		return c.Next()
	}
}

// Reassign validates the reassignment details body
func Reassign() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(services.ReassignDetails)
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

		c.Locals("validatedReassign", reqData)
		return c.Next()
	}
}

// ArchiveLogBody names the assignment being archived by the caller
type ArchiveLogBody struct {
	CompetencyType string `json:"competency_type" validate:"required,oneof=EXAM MODULE SKILL_CHECKLIST POLICY DOCUMENT"`
	Description    string `json:"description"`
}

// ArchiveLog validates the archive audit-log body
func ArchiveLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ArchiveLogBody)
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

		c.Locals("validatedArchiveLog", reqData)
		return c.Next()
	}
}
