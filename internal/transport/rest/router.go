package rest

import (
	"database/sql"
	"log/slog"

	"github.com/frahmantamala/employee-attendance/internal/attendance"
	"github.com/frahmantamala/employee-attendance/internal/auth"
	"github.com/frahmantamala/employee-attendance/internal/profile"
	"github.com/frahmantamala/employee-attendance/internal/transport/middleware"
	"github.com/frahmantamala/employee-attendance/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Routes bundles what RegisterAllRoutes mounts. Nil handlers are skipped.
type Routes struct {
	DB                *sql.DB
	HealthChecks      map[string]Checker
	AllowedOrigins    []string
	OpenAPIPath       string
	AuthHandler       *auth.Handler
	RBAC              *auth.RBACAuthorization
	ProfileHandler    *profile.Handler
	AttendanceHandler *attendance.Handler
}

func RegisterAllRoutes(router *chi.Mux, routes Routes, logger *slog.Logger) {
	healthHandler := NewHealthHandler(routes.DB, routes.HealthChecks)

	rbac := routes.RBAC
	if rbac == nil {
		rbac = auth.NewRBACAuthorization(logger)
	}

	router.Use(middleware.CORS(routes.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.TraceID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	if routes.OpenAPIPath != "" {
		router.Get(swagger.SpecRoute, swagger.SpecHandler(routes.OpenAPIPath))
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if routes.AuthHandler == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(routes.AuthHandler.AuthMiddleware)

			if routes.ProfileHandler != nil {
				pr.Get("/users/me", routes.ProfileHandler.GetCurrentUser)
			}

			h := routes.AttendanceHandler
			if h == nil {
				return
			}

			pr.Route("/attendance", func(ar chi.Router) {
				ar.Post("/check-in", h.CheckIn)
				ar.Post("/check-out", h.CheckOut)
				ar.Get("/today", h.GetToday)
				ar.Get("/summary", h.GetMonthlySummary)
				ar.Get("/history", h.GetHistory)
			})

			pr.Route("/manager", func(mr chi.Router) {
				mr.Use(rbac.RequireManager())
				mr.Get("/dashboard", h.GetDashboard)
				mr.Get("/trend", h.GetTrend)
				mr.Get("/attendance", h.ListAttendance)
				mr.Get("/attendance/export", h.Export)
			})
		})
	})
}
