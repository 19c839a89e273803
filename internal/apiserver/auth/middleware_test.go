package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIsPublicRoute(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		// 公开路由
		{"signin", "/api/v1/auth/signin", true},
		{"signup", "/api/v1/auth/signup", true},
		{"refresh", "/api/v1/auth/refresh", true},
		{"address suggestions", "/api/v1/auth/address-suggestions", true},
		{"health", "/health", true},
		{"metrics", "/metrics", true},

		// 业务路由需要 JWT
		{"me", "/api/v1/auth/me", false},
		{"password", "/api/v1/auth/password", false},
		{"users", "/api/v1/users", false},
		{"sessions", "/api/v1/sessions", false},
		{"referrals", "/api/v1/referrals", false},
		{"nearby", "/api/v1/photographers/nearby", false},
		{"stats", "/api/v1/stats/admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isPublicRoute(tt.path)
			if got != tt.expected {
				t.Errorf("isPublicRoute(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	cfg := Config{JWTSecret: "test-secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}

	var gotUser *AuthUser
	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetAuthUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/users", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("public route passes without token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/auth/signin", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("valid access token", func(t *testing.T) {
		token, err := GenerateAccessToken(cfg, "usr-1", "vet@example.com", "veteran")
		if err != nil {
			t.Fatalf("GenerateAccessToken: %v", err)
		}
		req := httptest.NewRequest("GET", "/api/v1/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotUser == nil || gotUser.ID != "usr-1" || gotUser.Role != "veteran" {
			t.Errorf("auth user = %+v, want usr-1/veteran", gotUser)
		}
	})

	t.Run("refresh token rejected on protected route", func(t *testing.T) {
		token, err := GenerateRefreshToken(cfg, "usr-1")
		if err != nil {
			t.Fatalf("GenerateRefreshToken: %v", err)
		}
		req := httptest.NewRequest("GET", "/api/v1/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		other := Config{JWTSecret: "other-secret", AccessTokenTTL: time.Minute}
		token, _ := GenerateAccessToken(other, "usr-1", "vet@example.com", "veteran")
		req := httptest.NewRequest("GET", "/api/v1/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestAdminOnly(t *testing.T) {
	handler := AdminOnly(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("admin allowed", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/stats/admin", nil)
		req = req.WithContext(WithAuthUser(req.Context(), &AuthUser{ID: "usr-a", Role: "admin"}))
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("photographer forbidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/stats/admin", nil)
		req = req.WithContext(WithAuthUser(req.Context(), &AuthUser{ID: "usr-p", Role: "photographer"}))
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("anonymous forbidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest("GET", "/api/v1/stats/admin", nil))
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}
