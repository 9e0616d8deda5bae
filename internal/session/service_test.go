package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/casbridge/casbridge/internal/audit"
	"github.com/casbridge/casbridge/internal/core"
	"github.com/casbridge/casbridge/internal/store"
)

func newTestService(t *testing.T, policy string) (*Service, *store.InMemoryStore) {
	t.Helper()
	compiled, err := CompileLoginPolicy(policy)
	if err != nil {
		t.Fatalf("CompileLoginPolicy() error = %v", err)
	}
	st := store.NewInMemoryStore()
	return NewService(st, compiled, audit.NewNoopAuditor()), st
}

func login(t *testing.T, svc *Service, ticketID, tokenID string, expiresIn time.Duration) {
	t.Helper()
	err := svc.Login(context.Background(), LoginEvent{
		TicketID:  ticketID,
		TokenID:   tokenID,
		ExpiresAt: time.Now().Add(expiresIn),
		Subject:   "alice",
	})
	if err != nil {
		t.Fatalf("Login(%q, %q) error = %v", ticketID, tokenID, err)
	}
}

func TestService_LoginValidityRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, "")
	login(t, svc, "ST-1", "jwt-A", time.Hour)

	verdict, err := svc.Validity(context.Background(), "jwt-A")
	if err != nil {
		t.Fatalf("Validity() error = %v", err)
	}
	if verdict != core.ValidityValid {
		t.Errorf("Validity() = %v, want Valid", verdict)
	}
}

func TestService_LoginValidation(t *testing.T) {
	tests := []struct {
		name       string
		event      LoginEvent
		wantStatus int
	}{
		{
			name:       "Empty Ticket",
			event:      LoginEvent{TokenID: "jwt-A", ExpiresAt: time.Now().Add(time.Hour)},
			wantStatus: 400,
		},
		{
			name:       "Empty Token",
			event:      LoginEvent{TicketID: "ST-1", ExpiresAt: time.Now().Add(time.Hour)},
			wantStatus: 400,
		},
		{
			name:       "Expiry In Past",
			event:      LoginEvent{TicketID: "ST-1", TokenID: "jwt-A", ExpiresAt: time.Now().Add(-time.Second)},
			wantStatus: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, "")
			err := svc.Login(context.Background(), tt.event)
			if err == nil {
				t.Fatal("Login() expected error, got nil")
			}
			var httpErr *HTTPError
			if !errors.As(err, &httpErr) || httpErr.StatusCode != tt.wantStatus {
				t.Errorf("Login() error = %v, want HTTPError with status %d", err, tt.wantStatus)
			}
		})
	}
}

func TestService_DuplicateLogin(t *testing.T) {
	svc, _ := newTestService(t, "")
	login(t, svc, "ST-1", "jwt-A", time.Hour)

	err := svc.Login(context.Background(), LoginEvent{
		TicketID:  "ST-2",
		TokenID:   "jwt-A",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, core.ErrAlreadyExists) {
		t.Errorf("Login() duplicate token error = %v, want ErrAlreadyExists", err)
	}
}

func TestService_LoginRollsBackOnIndexFailure(t *testing.T) {
	svc, st := newTestService(t, "")

	// occupy the ticket id so the index write fails after the record write
	if err := st.PutTicket(context.Background(), "ST-1", core.TicketRef{TokenID: "other"}); err != nil {
		t.Fatal(err)
	}

	err := svc.Login(context.Background(), LoginEvent{
		TicketID:  "ST-1",
		TokenID:   "jwt-A",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err == nil {
		t.Fatal("Login() expected error, got nil")
	}

	// the orphaned token record must be gone: a record without a ticket
	// index could never be logged out
	if _, err := st.GetToken(context.Background(), "jwt-A"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetToken() after failed login = %v, want ErrNotFound", err)
	}
}

func TestService_LoginPolicy(t *testing.T) {
	tests := []struct {
		name       string
		policy     string
		attributes map[string]any
		wantErr    bool
	}{
		{
			name:       "Allowed",
			policy:     `attributes["role"] == "user"`,
			attributes: map[string]any{"role": "user"},
		},
		{
			name:       "Denied",
			policy:     `attributes["role"] == "user"`,
			attributes: map[string]any{"role": "guest"},
			wantErr:    true,
		},
		{
			name:       "No Policy Admits All",
			policy:     "",
			attributes: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, tt.policy)
			err := svc.Login(context.Background(), LoginEvent{
				TicketID:   "ST-1",
				TokenID:    "jwt-A",
				ExpiresAt:  time.Now().Add(time.Hour),
				Subject:    "alice",
				Attributes: tt.attributes,
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Login() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var httpErr *HTTPError
				if !errors.As(err, &httpErr) || httpErr.StatusCode != 403 {
					t.Errorf("Login() error = %v, want HTTPError with status 403", err)
				}
			}
		})
	}
}

func TestService_ValidityUnknownVsInvalidated(t *testing.T) {
	svc, _ := newTestService(t, "")
	login(t, svc, "ST-1", "jwt-A", time.Hour)

	if _, err := svc.Logout(context.Background(), "ST-1"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	verdict, err := svc.Validity(context.Background(), "jwt-A")
	if err != nil {
		t.Fatalf("Validity() error = %v", err)
	}
	if verdict != core.ValidityInvalidated {
		t.Errorf("Validity(logged-out) = %v, want Invalidated", verdict)
	}

	// a token never presented to Login is Unknown, never Invalidated
	verdict, err = svc.Validity(context.Background(), "jwt-never-seen")
	if err != nil {
		t.Fatalf("Validity() error = %v", err)
	}
	if verdict != core.ValidityUnknown {
		t.Errorf("Validity(unregistered) = %v, want Unknown", verdict)
	}
}

func TestService_LogoutScenario(t *testing.T) {
	// the full walk-through: login, validate, logout, refresh, validate
	ctx := context.Background()
	svc, _ := newTestService(t, "")
	login(t, svc, "ST-1", "jwt-A", time.Hour)

	tokenID, err := svc.Logout(ctx, "ST-1")
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if tokenID != "jwt-A" {
		t.Errorf("Logout() = %q, want %q", tokenID, "jwt-A")
	}

	if v, _ := svc.Validity(ctx, "jwt-A"); v != core.ValidityInvalidated {
		t.Errorf("Validity() after logout = %v, want Invalidated", v)
	}

	// refresh must carry the invalid flag forward
	if err := svc.Refresh(ctx, "jwt-A", time.Now().Add(2*time.Hour)); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if v, _ := svc.Validity(ctx, "jwt-A"); v != core.ValidityInvalidated {
		t.Errorf("Validity() after refresh = %v, want still Invalidated", v)
	}
}

func TestService_LogoutUntrackedTicket(t *testing.T) {
	svc, _ := newTestService(t, "")

	tokenID, err := svc.Logout(context.Background(), "ST-unregistered")
	if err != nil {
		t.Errorf("Logout() error = %v, want nil (no-op)", err)
	}
	if tokenID != "" {
		t.Errorf("Logout() = %q, want empty", tokenID)
	}
}

func TestService_LogoutIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, "")
	login(t, svc, "ST-1", "jwt-A", time.Hour)

	for i := 0; i < 2; i++ {
		tokenID, err := svc.Logout(ctx, "ST-1")
		if err != nil {
			t.Fatalf("Logout() call %d error = %v", i+1, err)
		}
		if tokenID != "jwt-A" {
			t.Errorf("Logout() call %d = %q, want %q", i+1, tokenID, "jwt-A")
		}
	}

	if v, _ := svc.Validity(ctx, "jwt-A"); v != core.ValidityInvalidated {
		t.Errorf("Validity() = %v, want Invalidated", v)
	}
}

func TestService_RefreshUnregistered(t *testing.T) {
	svc, _ := newTestService(t, "")

	err := svc.Refresh(context.Background(), "jwt-old", time.Now().Add(time.Hour))
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Refresh() error = %v, want ErrNotFound", err)
	}
}

func TestService_RefreshExtendsExpiry(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, "")
	login(t, svc, "ST-1", "jwt-A", time.Hour)

	newExpiry := time.Now().Add(3 * time.Hour)
	if err := svc.Refresh(ctx, "jwt-A", newExpiry); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	record, err := st.GetToken(ctx, "jwt-A")
	if err != nil {
		t.Fatal(err)
	}
	if !record.ExpiresAt.Equal(newExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", record.ExpiresAt, newExpiry)
	}
	if record.Invalid {
		t.Error("Refresh() flipped Invalid to true on a live record")
	}
}

// TestService_LogoutRefreshRace drives concurrent logouts and refreshes
// of the same token. Whatever the interleaving, once a logout completed
// the token must never report Valid again.
func TestService_LogoutRefreshRace(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, "")
	login(t, svc, "ST-1", "jwt-A", time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Refresh(ctx, "jwt-A", time.Now().Add(2*time.Hour))
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := svc.Logout(ctx, "ST-1"); err != nil {
			t.Errorf("Logout() error = %v", err)
		}
	}()
	wg.Wait()

	// more refreshes after the logout completed
	for i := 0; i < 4; i++ {
		_ = svc.Refresh(ctx, "jwt-A", time.Now().Add(3*time.Hour))
	}

	if v, _ := svc.Validity(ctx, "jwt-A"); v != core.ValidityInvalidated {
		t.Errorf("Validity() after race = %v, want Invalidated", v)
	}
}

func TestService_ValidityExpiredRecord(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, "")

	// place an already-expired record directly; Login would reject it
	if err := st.PutToken(ctx, core.TokenRecord{
		TokenID:   "jwt-old",
		ExpiresAt: time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatal(err)
	}

	if v, _ := svc.Validity(ctx, "jwt-old"); v != core.ValidityUnknown {
		t.Errorf("Validity(expired, unswept) = %v, want Unknown", v)
	}
}
