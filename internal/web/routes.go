package web

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	recognitionHandler := handlers.NewRecognitionHandler(s.config, s.recognizer, s.trainer)
	trainingHandler := handlers.NewTrainingHandler(s.config, s.recognizer, s.trainer, s.jobManager)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(constants.RequestTimeout))

			// Model
			r.Get("/model/status", recognitionHandler.ModelStatus)
			r.Post("/model/reload", recognitionHandler.Reload)
			r.Get("/identities", recognitionHandler.Identities)

			// Training jobs
			r.Post("/train", trainingHandler.Start)
			r.Get("/train", trainingHandler.List)
			r.Get("/train/{jobId}", trainingHandler.Status)
			r.Delete("/train/{jobId}", trainingHandler.Cancel)

			// Image uploads
			r.Group(func(r chi.Router) {
				r.Use(chiMiddleware.RequestSize(constants.MaxUploadSize))

				r.Post("/recognize", recognitionHandler.Recognize)
				r.Post("/recognize/faces", recognitionHandler.RecognizeFaces)
				r.Post("/verify", recognitionHandler.Verify)
				r.Post("/capture", recognitionHandler.Capture)
			})
		})

		// Event streams stay open past the request timeout
		r.Get("/train/{jobId}/events", trainingHandler.Events)
	})
}
