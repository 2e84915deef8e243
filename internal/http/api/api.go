package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/forscht/relock/internal/bench"
	"github.com/forscht/relock/pkg/validator"
)

var validate = validator.New()

func Load(app *fiber.App, defaults bench.Config) {

	// create api API group
	api := app.Group("/api")

	// public route for public login
	api.Post("/user/login", LoginHandler())

	// returns necessary auth config
	api.Get("/config", AuthConfigHandler())

	// setup auth middleware
	api.Use(AuthHandler())

	// verify JWT token (required on a page load)
	api.Get("/check_token", CheckTokenHandler())

	// Run a workload and store its report
	api.Post("/runs", CreateRunHandler(defaults))

	// Report middlewares
	api.Get("/reports", GetReportsHandler())
	api.Get("/reports/:id<int>", GetReportHandler())
	api.Delete("/reports/:id<int>", DelReportHandler())
}
