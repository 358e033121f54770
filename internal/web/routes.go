package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance/internal/web/handlers"
	"github.com/kozaktomas/attendance/internal/web/middleware"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager) {
	authHandler := handlers.NewAuthHandler(s.users, sessionManager)
	studentsHandler := handlers.NewStudentsHandler(s.svc)
	attendanceHandler := handlers.NewAttendanceHandler(s.svc)
	reportsHandler := handlers.NewReportsHandler(s.svc)
	tallyHandler := handlers.NewTallyHandler(s.svc)
	cameraHandler := handlers.NewCameraHandler(s.svc, s.camera)
	usersHandler := handlers.NewUsersHandler(s.users)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))

			r.Get("/dashboard", attendanceHandler.Dashboard)

			// Roster
			r.Get("/students", studentsHandler.List)
			r.Post("/students", studentsHandler.Create)
			r.Get("/students/{id}", studentsHandler.Get)
			r.Delete("/students/{id}", studentsHandler.Delete)
			r.Put("/students/{id}/face", studentsHandler.UploadFace)

			// Register
			r.Get("/attendance", attendanceHandler.Day)
			r.Get("/attendance/dates", attendanceHandler.Dates)
			r.Put("/attendance/{id}", attendanceHandler.SetStatus)
			r.Post("/attendance/all-present", attendanceHandler.MarkAllPresent)
			r.Delete("/attendance", attendanceHandler.Delete)

			// Reports
			r.Get("/reports/daily", reportsHandler.Daily)
			r.Get("/reports/export", reportsHandler.Export)

			// Tally
			r.Get("/tally", tallyHandler.List)
			r.Post("/tally/{id}/mark", tallyHandler.Mark)

			// Camera
			r.Post("/camera/start", cameraHandler.Start)
			r.Post("/camera/stop", cameraHandler.Stop)
			r.Get("/camera/status", cameraHandler.Status)
			r.Get("/camera/events", cameraHandler.Events)
			r.Post("/camera/identify", cameraHandler.Identify)

			// Accounts
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/users", usersHandler.List)
				r.Post("/users", usersHandler.Create)
			})
		})
	})
}
