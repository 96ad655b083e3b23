package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tasks-serverless/internal/observability"
)

type fakePurger struct {
	deleted int64
	err     error
	calls   int
}

func (p *fakePurger) DeleteStaleRefreshTokens(_ context.Context, _ time.Duration, _ int) (int64, error) {
	p.calls++
	return p.deleted, p.err
}

func newCleanupHandler(purger *fakePurger, secret string) *CleanupHandler {
	logger := observability.NewLoggerTo("test", io.Discard)
	return NewCleanupHandler(purger, logger, secret, 30*24*time.Hour, 500)
}

func TestCleanupWithoutConfiguredSecret(t *testing.T) {
	purger := &fakePurger{}
	h := newCleanupHandler(purger, "")

	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if purger.calls != 0 {
		t.Error("purger must not run without a configured secret")
	}
}

func TestCleanupRejectsWrongSecret(t *testing.T) {
	purger := &fakePurger{}
	h := newCleanupHandler(purger, "cron-secret")

	for _, header := range []string{"", "Bearer wrong", "cron-secret"} {
		req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.Handle(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
	if purger.calls != 0 {
		t.Error("purger must not run for rejected requests")
	}
}

func TestCleanupDeletesStaleTokens(t *testing.T) {
	purger := &fakePurger{deleted: 42}
	h := newCleanupHandler(purger, "cron-secret")

	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Status  string `json:"status"`
		Deleted int64  `json:"deleted_refresh_tokens"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Status != "ok" || body.Deleted != 42 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestCleanupReportsFailure(t *testing.T) {
	purger := &fakePurger{err: errors.New("db down")}
	h := newCleanupHandler(purger, "cron-secret")

	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
