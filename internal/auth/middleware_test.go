package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeResolver struct {
	users map[string]User
}

func (r *fakeResolver) GetUserByID(_ context.Context, id string) (User, error) {
	user, ok := r.users[id]
	if !ok {
		return User{}, sql.ErrNoRows
	}
	return user, nil
}

func TestMiddlewareRejectsMissingAndMalformedHeaders(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret")
	resolver := &fakeResolver{users: map[string]User{}}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run")
	})
	handler := Middleware(tm, resolver, next)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "missing authorization token"},
		{"no scheme", "token-without-scheme", "invalid authorization format"},
		{"wrong scheme", "Basic abc123", "invalid authorization format"},
		{"empty token", "Bearer ", "invalid authorization format"},
		{"garbage token", "Bearer not-a-jwt", "invalid or expired token"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body["message"] != tc.message {
				t.Errorf("expected message %q, got %q", tc.message, body["message"])
			}
		})
	}
}

func TestMiddlewarePutsUserInContext(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret")
	user := User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
	resolver := &fakeResolver{users: map[string]User{"user-1": user}}

	token, _, err := tm.SignAccess("user-1")
	if err != nil {
		t.Fatalf("SignAccess returned error: %v", err)
	}

	var seen User
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, ok = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Middleware(tm, resolver, next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !ok {
		t.Fatal("expected user in request context")
	}
	if seen.ID != "user-1" || seen.Username != "alice" {
		t.Errorf("unexpected user in context: %+v", seen)
	}
}

func TestMiddlewareRejectsDeletedUser(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret")
	resolver := &fakeResolver{users: map[string]User{}}

	token, _, err := tm.SignAccess("user-gone")
	if err != nil {
		t.Fatalf("SignAccess returned error: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Middleware(tm, resolver, next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsRefreshTokenAsBearer(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret")
	user := User{ID: "user-1"}
	resolver := &fakeResolver{users: map[string]User{"user-1": user}}

	refresh, _, err := tm.SignRefresh("user-1")
	if err != nil {
		t.Fatalf("SignRefresh returned error: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()
	Middleware(tm, resolver, next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
