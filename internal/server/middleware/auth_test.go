package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	authservice "campusbook/auth/internal/auth/service"
	"campusbook/auth/internal/security"
)

type fakeVerifier struct {
	id  *authservice.Identity
	err error
}

func (f *fakeVerifier) VerifyAccess(ctx context.Context, token, ip string) (*authservice.Identity, error) {
	return f.id, f.err
}

func gateHandler(v Verifier) http.Handler {
	return Gate(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := GetIdentity(r.Context()); ok {
			w.Header().Set("X-User-ID", id.UserID)
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestGateNoHeaderPassesThroughAnonymously(t *testing.T) {
	h := gateHandler(&fakeVerifier{err: authservice.ErrSessionInvalid})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-User-ID") != "" {
		t.Error("anonymous request carried an identity")
	}
}

func TestGateValidToken(t *testing.T) {
	h := gateHandler(&fakeVerifier{id: &authservice.Identity{UserID: "u-1", Email: "a@b.c", SessionID: "s-1"}})

	for _, scheme := range []string{"Bearer", "bearer", "BEARER"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", scheme+" sometoken")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s scheme: want 200, got %d", scheme, rec.Code)
		}
		if got := rec.Header().Get("X-User-ID"); got != "u-1" {
			t.Errorf("%s scheme: user id %q", scheme, got)
		}
	}
}

func TestGateMalformedHeaderIsHard401(t *testing.T) {
	h := gateHandler(&fakeVerifier{id: &authservice.Identity{UserID: "u-1"}})

	// Multi-value tokens ("Bearer a b") are rejected by the header parser
	// itself, before the token ever reaches the verifier.
	for _, header := range []string{"Token abc", "Bearer", "Bearer   ", "abc", "Bearer a b", "Bearer a\tb"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: want 401, got %d", header, rec.Code)
		}
	}
}

func TestGateVerifierErrors(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{security.ErrTokenExpired, "token_expired"},
		{security.ErrTokenMalformed, "token_malformed"},
		{authservice.ErrSessionInvalid, "session_invalid"},
	}
	for _, tc := range cases {
		h := gateHandler(&fakeVerifier{err: tc.err})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer sometoken")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%v: want 401, got %d", tc.err, rec.Code)
		}
		var body struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%v: decode body: %v", tc.err, err)
		}
		if body.Error != tc.code {
			t.Errorf("%v: error code %q, want %q", tc.err, body.Error, tc.code)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated: want 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u-1"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated: want 200, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:4321"
	if ip := ClientIP(req); ip != "192.0.2.10" {
		t.Errorf("remote addr: got %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := ClientIP(req); ip != "203.0.113.7" {
		t.Errorf("forwarded: got %q", ip)
	}
}
