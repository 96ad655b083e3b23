package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tasks-serverless/internal/task"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestLoginCachesAccessToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if body["email"] != "alice@example.com" {
			t.Errorf("unexpected email %q", body["email"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message":     "login successful",
			"user":        User{ID: "user-1", Username: "alice", Email: "alice@example.com"},
			"accessToken": "token-1",
		})
	})

	client := newTestClient(t, mux)

	user, err := client.Login(context.Background(), "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("unexpected user %+v", user)
	}
	if client.AccessToken() != "token-1" {
		t.Errorf("expected cached token, got %q", client.AccessToken())
	}
}

func TestLoginSurfacesServerMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
	})

	client := newTestClient(t, mux)

	_, err := client.Login(context.Background(), "alice@example.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "invalid credentials" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestExpiredTokenIsRenewedAndReplayed(t *testing.T) {
	var refreshCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"accessToken": "fresh-token"})
	})
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "invalid or expired token"})
			return
		}
		json.NewEncoder(w).Encode([]task.Task{{ID: "t1", Title: "Buy milk"}})
	})

	client := newTestClient(t, mux)
	client.setAccessToken("stale-token")

	tasks, err := client.ListTasks(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("ListTasks returned error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Errorf("unexpected tasks: %+v", tasks)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("expected exactly 1 refresh call, got %d", got)
	}
	if client.AccessToken() != "fresh-token" {
		t.Errorf("expected cached fresh token, got %q", client.AccessToken())
	}
}

func TestConcurrentRequestsShareOneRenewal(t *testing.T) {
	var refreshCalls atomic.Int64
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		<-release
		json.NewEncoder(w).Encode(map[string]string{"accessToken": "fresh-token"})
	})
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "invalid or expired token"})
			return
		}
		json.NewEncoder(w).Encode([]task.Task{})
	})

	client := newTestClient(t, mux)
	client.setAccessToken("stale-token")

	const parallel = 8
	errs := make(chan error, parallel)

	var wg sync.WaitGroup
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.ListTasks(context.Background(), "", nil)
			errs <- err
		}()
	}

	// Hold the renewal open until every other caller is parked on a waiter, so
	// none of them can race past a finished renewal and start a second one.
	deadline := time.Now().Add(5 * time.Second)
	for {
		client.mu.Lock()
		parked := client.refreshing && len(client.waiters) == parallel-1
		client.mu.Unlock()
		if parked {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for callers to park")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("ListTasks returned error: %v", err)
		}
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("expected exactly 1 refresh call for %d concurrent requests, got %d", parallel, got)
	}
}

func TestFailedRenewalRejectsAllAndFiresCallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid refresh token"})
	})
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid or expired token"})
	})

	client := newTestClient(t, mux)
	client.setAccessToken("stale-token")

	var expired atomic.Int64
	client.OnSessionExpired(func() { expired.Add(1) })

	const parallel = 4
	errs := make(chan error, parallel)
	var wg sync.WaitGroup
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.ListTasks(context.Background(), "", nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, ErrSessionExpired) {
			t.Errorf("expected ErrSessionExpired, got %v", err)
		}
	}
	if client.AccessToken() != "" {
		t.Errorf("expected cleared token, got %q", client.AccessToken())
	}
	if expired.Load() == 0 {
		t.Error("expected session-expired callback to fire")
	}
}

// A request that still gets 401 after its one replay must fail instead of
// looping through renewal again.
func TestReplayHappensExactlyOnce(t *testing.T) {
	var refreshCalls, taskCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"accessToken": fmt.Sprintf("token-%d", refreshCalls.Load())})
	})
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		taskCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid or expired token"})
	})

	client := newTestClient(t, mux)
	client.setAccessToken("stale-token")

	_, err := client.ListTasks(context.Background(), "", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if got := taskCalls.Load(); got != 2 {
		t.Errorf("expected original request plus one replay, got %d calls", got)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("expected exactly 1 refresh call, got %d", got)
	}
}

func TestRefreshCookieFlowsThroughJar(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "rt-1", Path: "/"})
		json.NewEncoder(w).Encode(map[string]any{
			"user":        User{ID: "user-1"},
			"accessToken": "token-1",
		})
	})
	mux.HandleFunc("POST /api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("refresh_token")
		if err != nil || cookie.Value != "rt-1" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "no refresh token provided"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"accessToken": "token-2"})
	})
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-2" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "invalid or expired token"})
			return
		}
		json.NewEncoder(w).Encode([]task.Task{})
	})

	client := newTestClient(t, mux)

	if _, err := client.Login(context.Background(), "alice@example.com", "password123"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	// token-1 is stale per the server; renewal must present the jar's cookie.
	if _, err := client.ListTasks(context.Background(), "", nil); err != nil {
		t.Fatalf("ListTasks returned error: %v", err)
	}
	if client.AccessToken() != "token-2" {
		t.Errorf("expected token-2 after renewal, got %q", client.AccessToken())
	}
}

func TestListTasksSendsFilters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "milk" {
			t.Errorf("expected q=milk, got %q", got)
		}
		if got := r.URL.Query().Get("completed"); got != "true" {
			t.Errorf("expected completed=true, got %q", got)
		}
		json.NewEncoder(w).Encode([]task.Task{})
	})

	client := newTestClient(t, mux)
	client.setAccessToken("token-1")

	completed := true
	if _, err := client.ListTasks(context.Background(), "milk", &completed); err != nil {
		t.Fatalf("ListTasks returned error: %v", err)
	}
}

func TestLogoutClearsCachedToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "successfully logged out"})
	})

	client := newTestClient(t, mux)
	client.setAccessToken("token-1")

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if client.AccessToken() != "" {
		t.Errorf("expected cleared token, got %q", client.AccessToken())
	}
}
