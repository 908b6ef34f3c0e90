package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 16 << 20

// NewApp builds the Fiber application with middleware and every route.
func NewApp(handler *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "dosekeeper",
		DisableStartupMessage: true,
		BodyLimit:             maxBodyBytes,
		ErrorHandler:          handler.errorHandler,
	})

	app.Use(recover.New())
	app.Use(handler.RequestLogger)
	app.Use(handler.LanguageMiddleware)
	RegisterRoutes(app, handler)
	return app
}

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	registerAPIRoutes(app, handler)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api", handler.AuthRequired)

	api.Get("/profile", handler.GetProfile)
	api.Put("/profile", handler.SaveProfile)

	foods := api.Group("/foods")
	foods.Get("", handler.ListFoods)
	foods.Post("", handler.CreateFood)
	foods.Post("/catalog", handler.MergeCatalog)
	foods.Get("/:id", handler.GetFood)
	foods.Put("/:id", handler.UpdateFood)
	foods.Delete("/:id", handler.DeleteFood)

	meals := api.Group("/meals")
	meals.Get("", handler.ListMeals)
	meals.Post("", handler.SaveMeal)
	meals.Post("/calculate", handler.CalculateMeal)
	meals.Get("/:id", handler.GetMeal)
	meals.Delete("/:id", handler.DeleteMeal)
	meals.Put("/:id/dose", handler.UpdateDoseStatus)
	meals.Post("/:id/glucose", handler.RecordGlucose)
	meals.Post("/:id/glucose/capture", handler.EnqueueGlucoseCapture)
	meals.Post("/:id/template", handler.CreateTemplateFromMeal)

	templates := api.Group("/templates")
	templates.Get("", handler.ListTemplates)
	templates.Post("", handler.CreateTemplate)
	templates.Get("/:id", handler.GetTemplate)
	templates.Delete("/:id", handler.DeleteTemplate)
	templates.Get("/:id/draft", handler.ApplyTemplate)

	glucose := api.Group("/glucose")
	glucose.Get("/current", handler.CurrentGlucose)
	glucose.Post("/refresh", handler.RefreshGlucose)
	glucose.Get("/pending", handler.ListPendingGlucose)
	glucose.Post("/pending/:id/resolve", handler.ResolvePendingGlucose)

	api.Get("/stats", handler.GetStats)
	api.Get("/export/csv", handler.ExportCSV)

	backup := api.Group("/backup")
	backup.Get("", handler.ExportBackup)
	backup.Post("", handler.ImportBackup)
	backup.Get("/status", handler.BackupStatus)
	backup.Post("/snapshot", handler.CreateSnapshot)
	backup.Post("/restore-latest", handler.RestoreLatestSnapshot)
}
