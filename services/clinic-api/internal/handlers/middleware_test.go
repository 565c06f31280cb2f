package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/odemir/clinicbook/libs/auth"
)

const testSecret = "test-signing-secret"

func signTestToken(t *testing.T, role string) string {
	t.Helper()
	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:      "user-1",
		Username: "reception",
		Role:     role,
		Iat:      now.Unix(),
		Exp:      now.Add(time.Minute).Unix(),
	}, testSecret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	return token
}

func TestRequireAuth(t *testing.T) {
	var gotRole string
	handler := RequireAuth(testSecret, func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("claims missing from context")
		}
		gotRole = claims.Role
		w.WriteHeader(http.StatusOK)
	})

	// No header.
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: status = %d, want 401", rec.Code)
	}

	// Garbage token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", rec.Code)
	}

	// Valid token.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "admin"))
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", rec.Code)
	}
	if gotRole != "admin" {
		t.Fatalf("role in context = %q, want admin", gotRole)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(testSecret, "admin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "doctor"))
	handler(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong role: status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "admin"))
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("matching role: status = %d, want 200", rec.Code)
	}
}
