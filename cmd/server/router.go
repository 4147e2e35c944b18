package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/studykit/api/internal/api"
	apiMiddleware "github.com/studykit/api/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	generationHandler := api.NewGenerationHandler(app.contentService)
	studySetHandler := api.NewStudySetHandler(
		app.contentService,
		app.studySetStore,
		app.submission,
	)

	r.Route("/api", func(r chi.Router) {
		r.Route("/generate", func(r chi.Router) {
			r.Post("/metadata", generationHandler.SuggestMetadata)
			r.Post("/summary", generationHandler.Summarize)
			r.Post("/explanation", generationHandler.Explain)
			r.Post("/notes", generationHandler.GenerateNotes)
			r.Post("/quiz", generationHandler.GenerateQuiz)
			r.Post("/feedback", generationHandler.GenerateFeedback)
			r.Post("/diagram", generationHandler.GenerateDiagram)
		})

		r.Route("/study-sets", func(r chi.Router) {
			r.Post("/", studySetHandler.CreateStudySet)
			r.Get("/", studySetHandler.ListStudySets)
			r.Get("/{id}", studySetHandler.GetStudySet)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
