package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/casbridge/casbridge/internal/audit"
	"github.com/casbridge/casbridge/internal/core"
	"github.com/casbridge/casbridge/internal/store"
)

// Service implements the four session lifecycle operations on top of the
// correlation store. All mutations of a token record happen under that
// record's key lock, so a refresh holding a stale read can never overwrite
// a concurrent logout.
type Service struct {
	store   core.Store
	locks   *store.KeyLock
	policy  *LoginPolicy
	auditor core.Auditor
}

func NewService(st core.Store, policy *LoginPolicy, auditor core.Auditor) *Service {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	return &Service{
		store:   st,
		locks:   store.NewKeyLock(),
		policy:  policy,
		auditor: auditor,
	}
}

// Login registers a new (ticket, token) pair. The token record is written
// first, then the ticket index; if the index write fails the record is
// rolled back, because a token without a ticket index could never be
// invalidated by a back-channel logout.
func (s *Service) Login(ctx context.Context, event LoginEvent) error {
	logger := log.Ctx(ctx)

	auditEntry := core.AuditEntry{
		ID:       correlationFrom(ctx),
		Time:     time.Now(),
		Action:   "session.login",
		TicketID: event.TicketID,
		TokenID:  event.TokenID,
		Subject:  event.Subject,
	}
	defer func() {
		if err := s.auditor.Log(auditEntry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for login")
		}
	}()

	if event.TicketID == "" || event.TokenID == "" {
		auditEntry.Error = "missing ticket or token id"
		return httpError(http.StatusBadRequest,
			errors.New("ticket id and token id must not be empty"))
	}
	if !event.ExpiresAt.After(time.Now()) {
		auditEntry.Error = "expiry not in the future"
		return httpError(http.StatusBadRequest,
			fmt.Errorf("token expiry %s is not in the future", event.ExpiresAt))
	}

	if s.policy != nil {
		allowed, err := s.policy.Allows(event.Subject, event.Attributes)
		if err != nil {
			auditEntry.Error = "login policy error"
			return httpError(http.StatusInternalServerError, err)
		}
		if !allowed {
			auditEntry.Error = "login policy denied"
			logger.Warn().Str("subject", event.Subject).Msg("login denied by policy")
			return httpError(http.StatusForbidden,
				fmt.Errorf("login denied by policy for subject '%s'", event.Subject))
		}
	}

	unlock := s.locks.Lock(event.TokenID)
	defer unlock()

	record := core.TokenRecord{
		TokenID:   event.TokenID,
		ExpiresAt: event.ExpiresAt,
		Subject:   event.Subject,
	}
	if err := s.store.PutToken(ctx, record); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			// duplicate login for the same token id signals a caller bug
			// or a replayed ticket
			auditEntry.Error = "token already registered"
			logger.Warn().Str("token_id", event.TokenID).Msg("token id already registered")
			return httpError(http.StatusConflict, err)
		}
		auditEntry.Error = "storing token record failed"
		return httpError(http.StatusInternalServerError, err)
	}

	if err := s.store.PutTicket(ctx, event.TicketID, core.TicketRef{TokenID: event.TokenID}); err != nil {
		auditEntry.Error = "storing ticket index failed"
		logger.Error().Err(err).
			Str("ticket_id", event.TicketID).
			Str("token_id", event.TokenID).
			Msg("ticket index write failed after token record write, rolling back record")

		if delErr := s.store.DeleteToken(ctx, event.TokenID); delErr != nil {
			logger.Error().Err(delErr).Str("token_id", event.TokenID).
				Msg("rollback of token record failed, orphaned record remains")
		}
		if errors.Is(err, core.ErrAlreadyExists) {
			return httpError(http.StatusConflict, err)
		}
		return httpError(http.StatusInternalServerError, err)
	}

	auditEntry.Success = true
	logger.Info().
		Str("ticket_id", event.TicketID).
		Str("token_id", event.TokenID).
		Str("subject", event.Subject).
		Time("expires_at", event.ExpiresAt).
		Msg("session registered")
	return nil
}

// Validity is the hot path, called on effectively every authenticated
// request: a single-key lookup, no scan, no lock.
//
// Verdicts, in precedence order: record absent means Unknown (absence of
// information, not proof of logout); the invalid flag means Invalidated,
// even past expiry; a passed expiry means Unknown, because after
// reclamation the same token would answer Unknown and an expired record
// carries no validity information; otherwise Valid.
func (s *Service) Validity(ctx context.Context, tokenID string) (core.Validity, error) {
	if tokenID == "" {
		return core.ValidityUnknown, nil
	}

	record, err := s.store.GetToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ValidityUnknown, nil
		}
		// storage or decode failure propagates; callers fail closed
		return core.ValidityUnknown, err
	}

	switch {
	case record.Invalid:
		return core.ValidityInvalidated, nil
	case record.Expired(time.Now()):
		return core.ValidityUnknown, nil
	default:
		return core.ValidityValid, nil
	}
}

// Logout handles a back-channel logout signal for a ticket. An unknown
// ticket is a no-op, not an error: the authority also announces logouts
// for tickets this bridge never tracked (e.g. proxy tickets). Returns the
// invalidated token id, or "" for a no-op.
func (s *Service) Logout(ctx context.Context, ticketID string) (string, error) {
	logger := log.Ctx(ctx)

	auditEntry := core.AuditEntry{
		ID:       correlationFrom(ctx),
		Time:     time.Now(),
		Action:   "session.logout",
		TicketID: ticketID,
	}
	defer func() {
		if err := s.auditor.Log(auditEntry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for logout")
		}
	}()

	ref, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			auditEntry.Success = true
			logger.Debug().Str("ticket_id", ticketID).Msg("logout for untracked ticket, ignoring")
			return "", nil
		}
		auditEntry.Error = "ticket lookup failed"
		return "", httpError(http.StatusInternalServerError, err)
	}
	auditEntry.TokenID = ref.TokenID

	unlock := s.locks.Lock(ref.TokenID)
	defer unlock()

	record, err := s.store.GetToken(ctx, ref.TokenID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// the record was reaped but the ticket entry was not (yet);
			// nothing left to invalidate
			auditEntry.Success = true
			logger.Debug().Str("ticket_id", ticketID).Str("token_id", ref.TokenID).
				Msg("logout for already-reclaimed token, ignoring")
			return "", nil
		}
		auditEntry.Error = "token lookup failed"
		return "", httpError(http.StatusInternalServerError, err)
	}

	if record.Invalid {
		// repeated back-channel logout; already done
		auditEntry.Success = true
		return record.TokenID, nil
	}

	// flip the flag, never delete: validity checks must keep answering
	// "invalidated" until natural expiry
	if err := s.store.ReplaceToken(ctx, record.Invalidated()); err != nil {
		auditEntry.Error = "invalidating token failed"
		return "", httpError(http.StatusInternalServerError, err)
	}

	auditEntry.Success = true
	auditEntry.Subject = record.Subject
	logger.Info().
		Str("ticket_id", ticketID).
		Str("token_id", record.TokenID).
		Str("subject", record.Subject).
		Msg("session invalidated by back-channel logout")
	return record.TokenID, nil
}

// Refresh moves a token's expiry when the relying application silently
// rotates it. The stored invalid flag is carried forward unchanged: a
// refresh must never resurrect a logged-out token.
func (s *Service) Refresh(ctx context.Context, tokenID string, expiresAt time.Time) error {
	logger := log.Ctx(ctx)

	auditEntry := core.AuditEntry{
		ID:      correlationFrom(ctx),
		Time:    time.Now(),
		Action:  "session.refresh",
		TokenID: tokenID,
	}
	defer func() {
		if err := s.auditor.Log(auditEntry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry for refresh")
		}
	}()

	if tokenID == "" {
		auditEntry.Error = "missing token id"
		return httpError(http.StatusBadRequest, errors.New("token id must not be empty"))
	}
	if !expiresAt.After(time.Now()) {
		auditEntry.Error = "expiry not in the future"
		return httpError(http.StatusBadRequest,
			fmt.Errorf("new expiry %s is not in the future", expiresAt))
	}

	unlock := s.locks.Lock(tokenID)
	defer unlock()

	record, err := s.store.GetToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// refresh events can arrive for tokens issued before this
			// bridge existed
			auditEntry.Error = "token not registered"
			return httpError(http.StatusNotFound, fmt.Errorf("token not registered: %w", err))
		}
		auditEntry.Error = "token lookup failed"
		return httpError(http.StatusInternalServerError, err)
	}

	if err := s.store.ReplaceToken(ctx, record.Refreshed(expiresAt)); err != nil {
		auditEntry.Error = "replacing token failed"
		return httpError(http.StatusInternalServerError, err)
	}

	auditEntry.Success = true
	auditEntry.Subject = record.Subject
	logger.Info().
		Str("token_id", tokenID).
		Time("expires_at", expiresAt).
		Bool("invalid", record.Invalid).
		Msg("session expiry refreshed")
	return nil
}

func correlationFrom(ctx context.Context) string {
	id, _ := ctx.Value("correlation_id").(string)
	return id
}
