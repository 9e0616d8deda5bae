package reaper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/casbridge/casbridge/internal/audit"
	"github.com/casbridge/casbridge/internal/codec"
	"github.com/casbridge/casbridge/internal/core"
	"github.com/casbridge/casbridge/internal/logging"
	"github.com/casbridge/casbridge/internal/store"
)

func discard() logging.InternalLogger {
	return logging.NewMultiLogger()
}

func TestReaper_SweepRemovesExpiredPairs(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()

	// one expired, one live
	mustPut(t, st, "jwt-old", time.Now().Add(-time.Second), "ST-old")
	mustPut(t, st, "jwt-live", time.Now().Add(time.Hour), "ST-live")

	removed, err := New(st, audit.NewNoopAuditor()).Sweep(ctx, discard())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 2 { // record + ticket entry
		t.Errorf("Sweep() removed = %d, want 2", removed)
	}

	if _, err := st.GetToken(ctx, "jwt-old"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expired record still present: %v", err)
	}
	if _, err := st.GetTicket(ctx, "ST-old"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("ticket entry of expired record still present: %v", err)
	}

	if _, err := st.GetToken(ctx, "jwt-live"); err != nil {
		t.Errorf("live record swept: %v", err)
	}
	if _, err := st.GetTicket(ctx, "ST-live"); err != nil {
		t.Errorf("live ticket entry swept: %v", err)
	}
}

func TestReaper_SweepRemovesInvalidatedOnlyAfterExpiry(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()

	// invalidated but unexpired: logged out does not mean forgotten
	if err := st.PutToken(ctx, core.TokenRecord{
		TokenID:   "jwt-A",
		ExpiresAt: time.Now().Add(time.Hour),
		Invalid:   true,
	}); err != nil {
		t.Fatal(err)
	}

	removed, err := New(st, audit.NewNoopAuditor()).Sweep(ctx, discard())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("Sweep() removed = %d, want 0", removed)
	}
	if _, err := st.GetToken(ctx, "jwt-A"); err != nil {
		t.Errorf("invalidated unexpired record swept: %v", err)
	}
}

func TestReaper_SweepRemovesOrphanedTickets(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()

	// ticket entry whose record is already gone
	if err := st.PutTicket(ctx, "ST-orphan", core.TicketRef{TokenID: "jwt-gone"}); err != nil {
		t.Fatal(err)
	}

	removed, err := New(st, audit.NewNoopAuditor()).Sweep(ctx, discard())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Sweep() removed = %d, want 1", removed)
	}
	if _, err := st.GetTicket(ctx, "ST-orphan"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("orphaned ticket entry still present: %v", err)
	}
}

func TestReaper_SweepSkipsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	st, err := store.NewFileStore(base, codec.JSON{})
	if err != nil {
		t.Fatal(err)
	}

	mustPut(t, st, "jwt-old", time.Now().Add(-time.Second), "ST-old")

	// drop a corrupt record next to it
	corrupt := filepath.Join(base, "tokens", "6a77742d78.json") // hex("jwt-x")
	if err := os.WriteFile(corrupt, []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}

	removed, err := New(st, audit.NewNoopAuditor()).Sweep(ctx, discard())
	if err != nil {
		t.Fatalf("Sweep() error = %v (corrupt entry must not abort)", err)
	}
	if removed != 2 {
		t.Errorf("Sweep() removed = %d, want 2", removed)
	}

	// the corrupt file stays for manual inspection
	if _, err := os.Stat(corrupt); err != nil {
		t.Errorf("corrupt file was removed: %v", err)
	}
}

func TestReaper_SweepCountObservable(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()
	auditor := audit.NewInMemoryAuditor()

	mustPut(t, st, "jwt-old", time.Now().Add(-time.Minute), "ST-old")

	if _, err := New(st, auditor).Sweep(ctx, discard()); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	entries, err := auditor.GetRecent(1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("GetRecent() = %v entries, err %v", len(entries), err)
	}
	if entries[0].Action != "session.sweep" || entries[0].RemovedCount < 1 {
		t.Errorf("audit entry = %+v, want sweep with removed count >= 1", entries[0])
	}
}

func mustPut(t *testing.T, st core.Store, tokenID string, expiresAt time.Time, ticketID string) {
	t.Helper()
	ctx := context.Background()
	if err := st.PutToken(ctx, core.TokenRecord{TokenID: tokenID, ExpiresAt: expiresAt}); err != nil {
		t.Fatal(err)
	}
	if err := st.PutTicket(ctx, ticketID, core.TicketRef{TokenID: tokenID}); err != nil {
		t.Fatal(err)
	}
}
