package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/casbridge/casbridge/internal/api/presenter"
	"github.com/casbridge/casbridge/internal/backchannel"
	"github.com/casbridge/casbridge/internal/session"
)

// maxBackchannelBody bounds the logout request payload; CAS logout
// notifications are a few hundred bytes.
const maxBackchannelBody = 64 << 10

type LoginPayload struct {
	// TicketID is the SSO ticket the authority issued for this login.
	TicketID string `json:"ticket_id"`

	// TokenID is the id of the bearer token the application issued.
	TokenID string `json:"token_id"`

	// ExpiresAt is the bearer token's natural expiry.
	ExpiresAt time.Time `json:"expires_at"`

	Subject string `json:"subject"`

	// Attributes are the validated principal attributes, consulted by
	// the login policy if one is configured.
	Attributes map[string]any `json:"attributes"`
}

// handleLogin registers a validated login event.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload LoginPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode login payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	err := s.sessions.Login(ctx, session.LoginEvent{
		TicketID:   payload.TicketID,
		TokenID:    payload.TokenID,
		ExpiresAt:  payload.ExpiresAt,
		Subject:    payload.Subject,
		Attributes: payload.Attributes,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("session registration failed")
		presenter.Err(w, r, err, "session registration failed")
		return
	}

	presenter.JSON(w, r, map[string]string{"status": "registered"}, http.StatusCreated)
}

type ValidateResponse struct {
	TokenID  string `json:"token_id"`
	Validity string `json:"validity"`
}

// handleValidate answers the per-request validity check. This is the hot
// path; it does one store lookup and nothing else.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenID := r.PathValue("tokenId")
	if tokenID == "" {
		presenter.Error(w, r, "missing token id", http.StatusBadRequest)
		return
	}

	verdict, err := s.sessions.Validity(ctx, tokenID)
	if err != nil {
		// the caller must fail closed on a 5xx, never fail open
		log.Ctx(ctx).Error().Err(err).Str("token_id", tokenID).Msg("validity check failed")
		presenter.Error(w, r, "validity check failed", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, ValidateResponse{
		TokenID:  tokenID,
		Validity: verdict.String(),
	}, http.StatusOK)
}

type RefreshPayload struct {
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleRefresh moves a token's expiry after silent rotation.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload RefreshPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode refresh payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	if err := s.sessions.Refresh(ctx, payload.TokenID, payload.ExpiresAt); err != nil {
		logger.Warn().Err(err).Str("token_id", payload.TokenID).Msg("session refresh failed")
		presenter.Err(w, r, err, "session refresh failed")
		return
	}

	presenter.JSON(w, r, map[string]string{"status": "refreshed"}, http.StatusOK)
}

type LogoutResponse struct {
	Status string `json:"status"`

	// TokenID is the invalidated token, empty for a no-op.
	TokenID string `json:"token_id,omitempty"`
}

// handleBackchannelLogout accepts the logout notification a CAS server
// posts when an SSO session ends: either the raw SAML LogoutRequest XML,
// or the CAS convention of a form field named "logoutRequest".
func (s *Server) handleBackchannelLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var raw []byte
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		raw = []byte(r.FormValue("logoutRequest"))
	} else {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBackchannelBody))
		if err != nil {
			presenter.Error(w, r, "reading request body failed", http.StatusBadRequest)
			return
		}
		raw = body
	}

	req, err := backchannel.Parse(raw)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to parse back-channel logout request")
		presenter.Error(w, r, "invalid logout request", http.StatusBadRequest)
		return
	}

	tokenID, err := s.sessions.Logout(ctx, req.SessionIndex)
	if err != nil {
		logger.Error().Err(err).Str("ticket_id", req.SessionIndex).Msg("back-channel logout failed")
		presenter.Err(w, r, err, "logout failed")
		return
	}

	resp := LogoutResponse{Status: "ok", TokenID: tokenID}
	if tokenID == "" {
		resp.Status = "noop"
	}
	presenter.JSON(w, r, resp, http.StatusOK)
}
