package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/auth"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/handler"
	mw "github.com/emaildaana-cell/amarallegal-website-sub000/internal/middleware"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
)

type Config struct {
	JWTSecret string
	// PublicRateLimit is requests per minute per client IP on public routes.
	// Zero disables the limit.
	PublicRateLimit int
	CORSOrigins     []string
}

type Handlers struct {
	Auth       *handler.AuthHandler
	Submission *handler.SubmissionHandler
	Document   *handler.DocumentHandler
	Share      *handler.ShareHandler
	Export     *handler.ExportHandler
	Search     *handler.SearchHandler
	Dashboard  *handler.DashboardHandler
}

func New(cfg Config, h Handlers, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			if cfg.PublicRateLimit > 0 {
				r.Use(httprate.LimitByIP(cfg.PublicRateLimit, time.Minute))
			}
			r.Post("/auth/login", h.Auth.Login)

			r.Post("/sponsor-submissions", h.Submission.CreatePublic)
			r.Route("/sponsor-submissions/{token}", func(r chi.Router) {
				r.Get("/", h.Submission.GetByToken)
				r.Get("/files", h.Document.ListByToken)
				r.Post("/files", h.Document.Upload)
				r.Delete("/files/{fileID}", h.Document.Delete)
				r.Post("/finalize", h.Submission.Finalize)
			})

			r.Get("/shared/{shareToken}", h.Share.Access)
			r.Post("/shared/{shareToken}", h.Share.Access)
			r.Get("/blobs/{signed}", h.Document.Download)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.JWTSecret))
			r.Use(auth.RequireRole(models.RoleAdmin, models.RoleStaff))

			r.Get("/auth/me", h.Auth.Me)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/dashboard", h.Dashboard.Dashboard)
				r.Get("/search", h.Search.Search)

				r.Get("/submissions", h.Submission.List)
				r.Post("/submissions", h.Submission.Create)
				r.Route("/submissions/{id}", func(r chi.Router) {
					r.Get("/", h.Submission.Get)
					r.Delete("/", h.Submission.Delete)
					r.Patch("/status", h.Submission.UpdateStatus)
					r.Get("/history", h.Submission.History)
					r.Get("/files", h.Document.ListBySubmission)
					r.Get("/share-links", h.Share.List)
					r.Post("/share-links", h.Share.Create)
					r.Post("/export", h.Export.Export)
				})

				r.Post("/share-links/{linkID}/revoke", h.Share.Revoke)
				r.Delete("/share-links/{linkID}", h.Share.Delete)
			})
		})
	})

	return r
}
