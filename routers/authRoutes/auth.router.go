package authRoutes

import (
	controllers "comply/controllers/auth"
	validators "comply/validators/auth"

	"github.com/gofiber/fiber/v2"
)

// SetupAuthRoutes sets up the authentication routes
func SetupAuthRoutes(app *fiber.App) {
	authGroup := app.Group("/auth")

	authGroup.Post("/login", validators.Login(), controllers.Login)
}
