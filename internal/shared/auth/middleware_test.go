package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/serbia-gov/clinical-dx/internal/shared/config"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ehr-frontend",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Roles: []string{"clinician"},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestMiddleware(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, JWTSecret: testSecret}

	tests := []struct {
		name         string
		header       string
		expectStatus int
	}{
		{"Missing header", "", http.StatusUnauthorized},
		{"Wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"Garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"Wrong secret", "Bearer " + signToken(t, "other", time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"Expired", "Bearer " + signToken(t, testSecret, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"Valid", "Bearer " + signToken(t, testSecret, time.Now().Add(time.Hour)), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var caller *Caller
			h := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				caller = GetCaller(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/generate", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.expectStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectStatus, rec.Code)
			}
			if tt.expectStatus == http.StatusOK {
				if caller == nil || caller.Subject != "ehr-frontend" {
					t.Errorf("Expected caller in context, got %+v", caller)
				}
			}
		})
	}
}
