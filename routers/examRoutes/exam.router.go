package examRoutes

import (
	controllers "comply/controllers/exam"
	"comply/middleware"
	"comply/models"
	validators "comply/validators/exam"

	"github.com/gofiber/fiber/v2"
)

// SetupExamRoutes sets up the exam session routes
func SetupExamRoutes(app *fiber.App) {
	examGroup := app.Group("/exam")

	// Attempt lifecycle (clinician)
	examGroup.Post("/:id/start", middleware.JWTMiddleware, validators.AssignmentID(), controllers.StartExam)
	examGroup.Get("/:id/question", middleware.JWTMiddleware, validators.AssignmentID(), controllers.GetNextQuestion)
	examGroup.Post("/:id/answer", middleware.JWTMiddleware, validators.AssignmentID(), validators.SubmitAnswer(), controllers.SubmitAnswer)
	examGroup.Get("/:id/timer", middleware.JWTMiddleware, validators.AssignmentID(), controllers.ExamTimer)

	adminOnly := middleware.RequireRole(models.RoleAgencyAdmin, models.RoleAdmin)

	// Admin overrides
	examGroup.Post("/:id/complete", middleware.JWTMiddleware, adminOnly, validators.AssignmentID(), validators.MarkComplete(), controllers.MarkModuleCompleted)
	examGroup.Post("/:id/proctoring-review", middleware.JWTMiddleware, adminOnly, validators.AssignmentID(), validators.ProctoringReview(), controllers.ResolveProctoringReview)
}
