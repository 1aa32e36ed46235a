package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lumolearn/lumo-core/internal/api"
	apiMiddleware "github.com/lumolearn/lumo-core/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. It accepts the application dependencies to create handlers
// and register routes. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	// Create a router
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace) // Add trace IDs for log correlation

	// Create API handlers using the application's services
	reviewHandler := api.NewReviewHandler(app.reviewService, app.logger)
	planHandler := api.NewPlanHandler(app.plannerService, app.logger)
	unitHandler := api.NewUnitHandler(app.unitStore, app.logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// Learner-facing endpoints
		r.Route("/learners/{learnerID}", func(r chi.Router) {
			r.Get("/session", reviewHandler.StartSession)
			r.Get("/plan", planHandler.GetPlan)
			r.Post("/items/{itemID}/grade", reviewHandler.SubmitGrade)
			r.Post("/items/{itemID}/postpone", reviewHandler.PostponeItem)
			r.Post("/units/{unitID}/complete", reviewHandler.CompleteUnit)
		})

		// Unit catalog endpoints
		r.Route("/units", func(r chi.Router) {
			r.Post("/", unitHandler.CreateUnit)
			r.Get("/", unitHandler.ListUnits)
			r.Get("/{unitID}", unitHandler.GetUnit)
			r.Put("/{unitID}", unitHandler.UpdateUnit)
			r.Delete("/{unitID}", unitHandler.DeleteUnit)
			r.Get("/{unitID}/prerequisites", unitHandler.ListPrerequisites)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
