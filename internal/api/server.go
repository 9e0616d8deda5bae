package api

import (
	"net/http"

	"github.com/casbridge/casbridge/internal/api/middleware"
	"github.com/casbridge/casbridge/internal/audit"
	"github.com/casbridge/casbridge/internal/core"
	"github.com/casbridge/casbridge/internal/reaper"
	"github.com/casbridge/casbridge/internal/session"
	"github.com/casbridge/casbridge/internal/tasks"
)

type Server struct {
	sessions    *session.Service
	reaper      *reaper.Reaper
	taskManager *tasks.Manager
	auditor     core.Auditor
}

func NewServer(
	sessions *session.Service,
	rp *reaper.Reaper,
	taskManager *tasks.Manager,
	auditor core.Auditor,
) *Server {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}

	return &Server{
		sessions:    sessions,
		reaper:      rp,
		taskManager: taskManager,
		auditor:     auditor,
	}
}

func (s *Server) Routes(adminSigningKey []byte) http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)

	// session lifecycle routes
	mux.HandleFunc("POST "+LoginRoute, s.handleLogin)
	mux.HandleFunc("GET "+ValidateRoute, s.handleValidate)
	mux.HandleFunc("POST "+RefreshRoute, s.handleRefresh)
	mux.HandleFunc("POST "+BackchannelLogoutRoute, s.handleBackchannelLogout)

	// admin routes
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("POST "+SweepRoute, s.handleAdminSweep)
	adminMux.HandleFunc("GET "+ListSessionsRoute, s.handleAdminSessions)
	adminMux.HandleFunc("GET "+ListAuditsRoute, s.handleAdminAudits)
	adminMux.HandleFunc("GET "+ListTasksRoute, s.handleListTasks)
	adminMux.HandleFunc("POST "+TriggerTaskRoute, s.handleTriggerTask)
	adminMux.HandleFunc("GET "+LogsForTaskRoute, s.handleLogsForTask)
	mux.Handle(AdminParent, middleware.AdminAuth(adminSigningKey)(adminMux))

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				mux)))
}
