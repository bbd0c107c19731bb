package controllers

import (
	"errors"

	"comply/database"
	"comply/middleware"
	"comply/models"
	"comply/models/competency"
	"comply/services"
	"comply/utils"
	assignmentValidator "comply/validators/assignment"

	"github.com/gofiber/fiber/v2"
)

// AssignCompetencies handles the bulk assignment request: expands bundles,
// resolves targets and creates assignments, returning the per-item batch
// result. Individual failures never fail the request.
func AssignCompetencies(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	agencyID, ok := c.Locals("agencyId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData := c.Locals("validatedAssign").(*assignmentValidator.AssignBody)

	result, err := services.AssignCompetencies(database.Database.Db, services.AssignRequest{
		AgencyID:    agencyID,
		InitiatorID: userID,
		Targets:     reqData.Targets,
		Selections:  reqData.Selections,
		BundleIDs:   reqData.BundleIDs,
		Overrides:   reqData.Details,
	})
	if err != nil {
		return serviceErr(c, err)
	}

	for _, notice := range result.Notices {
		utils.SendNewAssignmentEmail(notice.Email, notice.Name, notice.ItemTitles)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Assignment request processed!", result)
}

// AssignCompetenciesATS is the ATS-facing variant: existence-validated, with
// a machine-readable per-user/per-item error list.
func AssignCompetenciesATS(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	agencyID, ok := c.Locals("agencyId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData := c.Locals("validatedATSAssign").(*assignmentValidator.ATSAssignBody)

	result, err := services.AssignCompetenciesATS(database.Database.Db, agencyID, userID, reqData.UserIDs, reqData.Selections)
	if err != nil {
		return serviceErr(c, err)
	}

	for _, notice := range result.Notices {
		utils.SendNewAssignmentEmail(notice.Email, notice.Name, notice.ItemTitles)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Assignment request processed!", result)
}

// EditAssignmentDetails updates due date, attempts or expiration on one assignment
func EditAssignmentDetails(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	agencyID := c.Locals("agencyId").(uint)
	assignmentID := c.Locals("assignmentID").(uint)
	reqData := c.Locals("validatedDetails").(*services.DetailOverrides)

	assignment, err := services.EditAssignmentDetails(database.Database.Db, assignmentID, agencyID, *reqData, userID)
	if err != nil {
		return serviceErr(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Assignment updated!", assignment)
}

// ReassignAssignment archives the original and creates a fresh instance.
// This user-facing path notifies the clinician by email.
func ReassignAssignment(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	assignmentID := c.Locals("assignmentID").(uint)
	reqData := c.Locals("validatedReassign").(*services.ReassignDetails)

	successor, err := services.Reassign(database.Database.Db, assignmentID, *reqData, userID)
	if err != nil {
		return serviceErr(c, err)
	}

	var clinician models.User
	if err := database.Database.Db.First(&clinician, successor.UserID).Error; err == nil {
		title, err := services.ItemTitle(database.Database.Db, successor.CompetencyType, successor.CompetencyID)
		if err == nil {
			utils.SendReassignmentEmail(clinician.Email, clinician.FirstName, title)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Assignment reassigned!", successor)
}

// ArchiveLog writes the audit entry for an archive performed by the caller.
// The status transition itself is the caller's responsibility.
func ArchiveLog(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	assignmentID := c.Locals("assignmentID").(uint)
	reqData := c.Locals("validatedArchiveLog").(*assignmentValidator.ArchiveLogBody)

	var assignment competency.Assignment
	err := database.Database.Db.
		Where("id = ? AND competency_type = ? AND is_deleted = ?", assignmentID, reqData.CompetencyType, false).
		First(&assignment).Error
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Assignment not found!", nil)
	}

	description := reqData.Description
	if description == "" {
		description = "Assignment archived"
	}

	err = services.LogEvent(database.Database.Db, models.UserLog{
		EventType:      models.LogEventArchived,
		Description:    description,
		CompetencyType: assignment.CompetencyType,
		CompetencyID:   assignment.CompetencyID,
		UserID:         assignment.UserID,
		InitiatorID:    userID,
		AssignmentID:   assignment.ID,
	})
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to write audit log!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Archive logged!", nil)
}

// GetMyAssignments lists the signed-in clinician's assignments
func GetMyAssignments(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var assignments []competency.Assignment
	err := database.Database.Db.
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("created_at desc").
		Find(&assignments).Error
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch assignments!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Assignments fetched successfully!", fiber.Map{
		"assignments": assignments,
		"total":       len(assignments),
	})
}

// serviceErr maps service precondition errors onto the JSON envelope
func serviceErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrAssignmentNotFound), errors.Is(err, services.ErrAgencyNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, err.Error(), nil)
	case errors.Is(err, services.ErrConflict):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, err.Error(), nil)
	case errors.Is(err, services.ErrAlreadyReassigned), errors.Is(err, services.ErrWrongState):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, err.Error(), nil)
	default:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Something went wrong!", nil)
	}
}
