package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/casbridge/casbridge/internal/api/presenter"
	"github.com/casbridge/casbridge/internal/core"
	"github.com/casbridge/casbridge/internal/logging"
)

type SweepResponse struct {
	Removed int `json:"removed"`
}

// handleAdminSweep triggers a reclamation pass on demand and reports how
// many entries it removed.
func (s *Server) handleAdminSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	removed, err := s.reaper.Sweep(ctx, logging.NewZLogger(*logger))
	if err != nil {
		logger.Error().Err(err).Msg("on-demand sweep failed")
		presenter.Error(w, r, "sweep failed", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, SweepResponse{Removed: removed}, http.StatusOK)
}

// handleAdminSessions lists all tracked token records.
func (s *Server) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := s.sessions.List(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list session records")
		presenter.Error(w, r, "failed to list session records", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, records, http.StatusOK)
}

// handleAdminAudits retrieves audit log entries, optionally filtered.
func (s *Server) handleAdminAudits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	q := r.URL.Query()
	limitStr := q.Get("limit")

	filterCorrelationID := q.Get("correlation_id")
	filterTicketID := q.Get("ticket_id")
	filterTokenID := q.Get("token_id")

	limit := 50
	if limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil {
			logger.Warn().Err(err).Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = v
	}

	var entries []core.AuditEntry
	var err error

	if filterCorrelationID != "" || filterTicketID != "" || filterTokenID != "" {
		entries, err = s.auditor.Find(func(entry core.AuditEntry) bool {
			if filterCorrelationID != "" && entry.ID != filterCorrelationID {
				return false
			}
			if filterTicketID != "" && entry.TicketID != filterTicketID {
				return false
			}
			if filterTokenID != "" && entry.TokenID != filterTokenID {
				return false
			}
			return true
		}, limit)
	} else {
		entries, err = s.auditor.GetRecent(limit)
	}

	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Error(w, r, "failed to retrieve audit logs", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, entries, http.StatusOK)
}
