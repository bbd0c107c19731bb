package assignmentRoutes

import (
	controllers "comply/controllers/assignment"
	"comply/middleware"
	"comply/models"
	validators "comply/validators/assignment"

	"github.com/gofiber/fiber/v2"
)

// SetupAssignmentRoutes sets up all competency assignment routes
func SetupAssignmentRoutes(app *fiber.App) {
	adminGroup := app.Group("/competency")

	adminOnly := middleware.RequireRole(models.RoleAgencyAdmin, models.RoleAdmin)

	// Bulk assignment
	adminGroup.Post("/assign", middleware.JWTMiddleware, adminOnly, validators.AssignCompetencies(), controllers.AssignCompetencies)
	adminGroup.Post("/assign/ats", middleware.JWTMiddleware, adminOnly, validators.AssignCompetenciesATS(), controllers.AssignCompetenciesATS)

	// Single assignment management
	adminGroup.Put("/assignment/:id", middleware.JWTMiddleware, adminOnly, validators.AssignmentID(), validators.EditDetails(), controllers.EditAssignmentDetails)
	adminGroup.Post("/assignment/:id/reassign", middleware.JWTMiddleware, adminOnly, validators.AssignmentID(), validators.Reassign(), controllers.ReassignAssignment)
	adminGroup.Post("/assignment/:id/archive-log", middleware.JWTMiddleware, adminOnly, validators.AssignmentID(), validators.ArchiveLog(), controllers.ArchiveLog)

	// Clinician-facing listing
	adminGroup.Get("/assignments", middleware.JWTMiddleware, controllers.GetMyAssignments)
}
