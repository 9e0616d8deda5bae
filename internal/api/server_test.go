package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/casbridge/casbridge/internal/backchannel"
	"github.com/casbridge/casbridge/internal/logging"
	"github.com/casbridge/casbridge/internal/reaper"
	"github.com/casbridge/casbridge/internal/session"
	"github.com/casbridge/casbridge/internal/store"
	"github.com/casbridge/casbridge/internal/tasks"
)

var testSigningKey = []byte("test-signing-key")

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	st := store.NewInMemoryStore()
	svc := session.NewService(st, nil, nil)
	rp := reaper.New(st, nil)

	tm := tasks.NewManager()
	t.Cleanup(tm.Stop)

	srv := NewServer(svc, rp, tm, nil)
	return srv.Routes(testSigningKey)
}

func mintAdminToken(t *testing.T, roles []string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "tester",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func doJSON(t *testing.T, handler http.Handler, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func loginPayload(ticketID, tokenID string) LoginPayload {
	return LoginPayload{
		TicketID:  ticketID,
		TokenID:   tokenID,
		ExpiresAt: time.Now().Add(time.Hour),
		Subject:   "alice",
	}
}

func TestServer_LoginAndValidate(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, LoginRoute, loginPayload("ST-1", "jwt-1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("login: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/session/validate/jwt-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ValidateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode validate response: %v", err)
	}
	if resp.Validity != "valid" {
		t.Errorf("expected validity 'valid', got %q", resp.Validity)
	}
}

func TestServer_ValidateUnknownToken(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodGet, "/v1/session/validate/jwt-nope", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ValidateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode validate response: %v", err)
	}
	if resp.Validity != "unknown" {
		t.Errorf("expected validity 'unknown', got %q", resp.Validity)
	}
}

func TestServer_LoginDuplicateToken(t *testing.T) {
	handler := newTestHandler(t)

	if rec := doJSON(t, handler, http.MethodPost, LoginRoute, loginPayload("ST-1", "jwt-1")); rec.Code != http.StatusCreated {
		t.Fatalf("first login: expected 201, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodPost, LoginRoute, loginPayload("ST-2", "jwt-1")); rec.Code != http.StatusConflict {
		t.Errorf("duplicate login: expected 409, got %d", rec.Code)
	}
}

func TestServer_LoginRejectsUnknownFields(t *testing.T) {
	handler := newTestHandler(t)

	body := strings.NewReader(`{"ticket_id":"ST-1","token_id":"jwt-1","bogus":true}`)
	req := httptest.NewRequest(http.MethodPost, LoginRoute, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_BackchannelLogoutForm(t *testing.T) {
	handler := newTestHandler(t)

	if rec := doJSON(t, handler, http.MethodPost, LoginRoute, loginPayload("ST-42", "jwt-42")); rec.Code != http.StatusCreated {
		t.Fatalf("login: expected 201, got %d", rec.Code)
	}

	xml, err := backchannel.Build("ST-42", "alice")
	if err != nil {
		t.Fatalf("failed to build logout request: %v", err)
	}

	form := url.Values{"logoutRequest": {string(xml)}}
	req := httptest.NewRequest(http.MethodPost, BackchannelLogoutRoute, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp LogoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode logout response: %v", err)
	}
	if resp.Status != "ok" || resp.TokenID != "jwt-42" {
		t.Errorf("unexpected logout response: %+v", resp)
	}

	// the token must now report invalidated
	rec2 := doJSON(t, handler, http.MethodGet, "/v1/session/validate/jwt-42", nil)
	var validity ValidateResponse
	if err := json.Unmarshal(rec2.Body.Bytes(), &validity); err != nil {
		t.Fatalf("failed to decode validate response: %v", err)
	}
	if validity.Validity != "invalidated" {
		t.Errorf("expected validity 'invalidated', got %q", validity.Validity)
	}
}

func TestServer_BackchannelLogoutRawXML(t *testing.T) {
	handler := newTestHandler(t)

	xml, err := backchannel.Build("ST-unknown", "alice")
	if err != nil {
		t.Fatalf("failed to build logout request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, BackchannelLogoutRoute, bytes.NewReader(xml))
	req.Header.Set("Content-Type", "application/xml")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp LogoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode logout response: %v", err)
	}
	if resp.Status != "noop" {
		t.Errorf("expected status 'noop', got %q", resp.Status)
	}
}

func TestServer_BackchannelLogoutInvalidPayload(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, BackchannelLogoutRoute, strings.NewReader("not xml at all"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_RefreshUnknownToken(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, RefreshRoute, RefreshPayload{
		TokenID:   "jwt-missing",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestServer_AdminAuth(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{
			name:       "No Token",
			token:      "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Garbage Token",
			token:      "not-a-jwt",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Missing Admin Role",
			token:      mintAdminToken(t, []string{"viewer"}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Admin Role",
			token:      mintAdminToken(t, []string{"admin"}),
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, SweepRoute, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestServer_AdminSweep(t *testing.T) {
	handler := newTestHandler(t)
	admin := mintAdminToken(t, []string{"admin"})

	// one live, one already expired
	if rec := doJSON(t, handler, http.MethodPost, LoginRoute, loginPayload("ST-live", "jwt-live")); rec.Code != http.StatusCreated {
		t.Fatalf("login: expected 201, got %d", rec.Code)
	}
	expired := LoginPayload{
		TicketID:  "ST-old",
		TokenID:   "jwt-old",
		ExpiresAt: time.Now().Add(time.Second),
		Subject:   "bob",
	}
	if rec := doJSON(t, handler, http.MethodPost, LoginRoute, expired); rec.Code != http.StatusCreated {
		t.Fatalf("login: expected 201, got %d", rec.Code)
	}
	time.Sleep(1100 * time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, SweepRoute, nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("sweep: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp SweepResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode sweep response: %v", err)
	}
	// expired token record plus its ticket entry
	if resp.Removed != 2 {
		t.Errorf("expected 2 removed, got %d", resp.Removed)
	}

	// the live session must survive
	rec2 := doJSON(t, handler, http.MethodGet, "/v1/session/validate/jwt-live", nil)
	var validity ValidateResponse
	if err := json.Unmarshal(rec2.Body.Bytes(), &validity); err != nil {
		t.Fatalf("failed to decode validate response: %v", err)
	}
	if validity.Validity != "valid" {
		t.Errorf("expected validity 'valid', got %q", validity.Validity)
	}
}

func TestServer_AdminSessions(t *testing.T) {
	handler := newTestHandler(t)
	admin := mintAdminToken(t, []string{"admin"})

	for _, p := range []LoginPayload{loginPayload("ST-1", "jwt-1"), loginPayload("ST-2", "jwt-2")} {
		if rec := doJSON(t, handler, http.MethodPost, LoginRoute, p); rec.Code != http.StatusCreated {
			t.Fatalf("login: expected 201, got %d", rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, ListSessionsRoute, nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var sessions []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("failed to decode sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sessions))
	}
}

func TestServer_TaskRoutes(t *testing.T) {
	st := store.NewInMemoryStore()
	svc := session.NewService(st, nil, nil)
	rp := reaper.New(st, nil)

	tm := tasks.NewManager()
	t.Cleanup(tm.Stop)
	tm.Register("noop", 0, func(ctx context.Context, logger logging.InternalLogger) error {
		return nil
	})

	srv := NewServer(svc, rp, tm, nil)
	handler := srv.Routes(testSigningKey)
	admin := mintAdminToken(t, []string{"admin"})

	do := func(method, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		req.Header.Set("Authorization", "Bearer "+admin)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodGet, ListTasksRoute); rec.Code != http.StatusOK {
		t.Errorf("list tasks: expected 200, got %d", rec.Code)
	}
	if rec := do(http.MethodPost, TaskParent+"noop/trigger"); rec.Code != http.StatusOK {
		t.Errorf("trigger: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(http.MethodPost, TaskParent+"missing/trigger"); rec.Code != http.StatusInternalServerError {
		t.Errorf("trigger missing: expected 500, got %d", rec.Code)
	}
	if rec := do(http.MethodGet, TaskParent+"noop/logs"); rec.Code != http.StatusOK {
		t.Errorf("logs: expected 200, got %d", rec.Code)
	}
}

func TestServer_Health(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodGet, HealthCheckRoute, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
