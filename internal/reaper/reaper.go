package reaper

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/casbridge/casbridge/internal/audit"
	"github.com/casbridge/casbridge/internal/core"
	"github.com/casbridge/casbridge/internal/logging"
)

// Reaper removes records whose natural expiry has passed, regardless of
// their invalidation state, together with the ticket-index entries that
// point at them. Per-entry failures are logged and skipped; the same keys
// are retried on the next sweep.
type Reaper struct {
	store   core.Store
	auditor core.Auditor
}

func New(store core.Store, auditor core.Auditor) *Reaper {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	return &Reaper{store: store, auditor: auditor}
}

// Sweep runs one reclamation pass and returns the number of durable
// entries (token records plus ticket-index entries) it removed.
func (r *Reaper) Sweep(ctx context.Context, logger logging.InternalLogger) (int, error) {
	removed := 0

	auditEntry := core.AuditEntry{
		Time:   time.Now(),
		Action: "session.sweep",
	}
	defer func() {
		auditEntry.RemovedCount = removed
		if err := r.auditor.Log(auditEntry); err != nil {
			log.Error().Err(err).Msg("failed to write audit log entry for sweep")
		}
	}()

	tokenIDs, err := r.store.ListTokenIDs(ctx)
	if err != nil {
		auditEntry.Error = "listing token records failed"
		return removed, err
	}

	now := time.Now()
	var expired []string
	for _, id := range tokenIDs {
		record, err := r.store.GetToken(ctx, id)
		if err != nil {
			// a corrupt entry must not stop the sweep
			logger.Warn("skipping unreadable token record '%s': %v", id, err)
			continue
		}
		if record.Expired(now) {
			expired = append(expired, id)
		}
	}
	logger.Info("found %d expired of %d token records", len(expired), len(tokenIDs))

	reclaimed := make(map[string]struct{}, len(expired))
	for _, id := range expired {
		// confirm the entry is still expired at deletion time, so a
		// login that reused a reclaimed id between listing and deletion
		// is never swept away
		record, err := r.store.GetToken(ctx, id)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				logger.Warn("re-reading token record '%s' failed: %v", id, err)
			}
			continue
		}
		if !record.Expired(time.Now()) {
			continue
		}
		if err := r.store.DeleteToken(ctx, id); err != nil {
			logger.Error("deleting token record '%s' failed: %v", id, err)
			continue
		}
		reclaimed[id] = struct{}{}
		removed++
	}

	ticketIDs, err := r.store.ListTicketIDs(ctx)
	if err != nil {
		auditEntry.Error = "listing ticket index failed"
		return removed, err
	}

	for _, ticketID := range ticketIDs {
		ref, err := r.store.GetTicket(ctx, ticketID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				continue // already gone
			}
			logger.Warn("skipping unreadable ticket entry '%s': %v", ticketID, err)
			continue
		}

		stale := false
		if _, ok := reclaimed[ref.TokenID]; ok {
			stale = true
		} else if _, err := r.store.GetToken(ctx, ref.TokenID); errors.Is(err, core.ErrNotFound) {
			// orphaned by an earlier partial sweep; logins write the
			// token record before the ticket entry, so a missing record
			// never means a login in progress
			stale = true
		}
		if !stale {
			continue
		}

		if err := r.store.DeleteTicket(ctx, ticketID); err != nil {
			logger.Error("deleting ticket entry '%s' failed: %v", ticketID, err)
			continue
		}
		removed++
	}

	auditEntry.Success = true
	logger.Info("sweep removed %d entries", removed)
	return removed, nil
}
