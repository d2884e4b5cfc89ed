package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/auth"
	"github.com/angelmondragon/cellarbook-backend/pkg/auth/session"
	"github.com/angelmondragon/cellarbook-backend/pkg/config"
	"github.com/google/uuid"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "cellarbook", ExpirationMinutes: 60}

type stubSessions struct {
	live bool
	err  error
}

func (s stubSessions) HasSession(context.Context, string) (bool, error) {
	return s.live, s.err
}

func TestAuthRejections(t *testing.T) {
	fresh := mintTestToken(t, time.Now(), uuid.New())
	tests := []struct {
		name     string
		header   string
		sessions stubSessions
		want     int
	}{
		{"no header", "", stubSessions{live: true}, http.StatusUnauthorized},
		{"garbage token", "Bearer invalid", stubSessions{live: true}, http.StatusUnauthorized},
		{"expired token", "Bearer " + mintTestToken(t, time.Now().Add(-2*time.Hour), uuid.New()), stubSessions{live: true}, http.StatusUnauthorized},
		{"logged out session", "Bearer " + fresh, stubSessions{live: false}, http.StatusUnauthorized},
		{"session store down", "Bearer " + fresh, stubSessions{err: errors.New("redis down")}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			handler := Auth(testJWT, tt.sessions, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				reached = true
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d got %d", tt.want, rec.Code)
			}
			if reached {
				t.Fatal("handler must not run")
			}
		})
	}
}

func TestAuthSeedsUserID(t *testing.T) {
	userID := uuid.New()
	token := mintTestToken(t, time.Now(), userID)

	var got uuid.UUID
	handler := Auth(testJWT, stubSessions{live: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || got != userID {
		t.Fatalf("expected %s in context, got %s (status %d)", userID, got, rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"Bearer abc":   "abc",
		"BEARER  abc ": "abc",
		"abc":          "abc",
		"":             "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		if got := BearerToken(req); got != want {
			t.Fatalf("%q: expected %q got %q", header, want, got)
		}
	}
}

func TestRequireUserID(t *testing.T) {
	if _, err := RequireUserID(context.Background()); err == nil {
		t.Fatal("expected unauthorized on a bare context")
	}
	if _, ok := UserIDFromContext(WithUserID(context.Background(), uuid.Nil)); ok {
		t.Fatal("nil uuid counts as absent")
	}
}

func mintTestToken(t *testing.T, now time.Time, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, now, auth.AccessTokenPayload{
		UserID: userID,
		Email:  "ana@example.com",
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
