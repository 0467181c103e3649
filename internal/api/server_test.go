package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mungus451/Stellar-Dominion-Game-sub003/internal/game"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Bearer   abc123  ", "abc123"},
		{"Basic abc123", ""},
		{"abc123", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := bearerToken(tc.header); got != tc.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	s := &Server{log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	cases := []struct {
		err  error
		want int
	}{
		{game.ErrInvalidMission, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", game.ErrInsufficientTurns), http.StatusBadRequest},
		{game.ErrNoSpies, http.StatusBadRequest},
		{game.ErrInsufficientCredits, http.StatusBadRequest},
		{game.ErrLevelBracket, http.StatusForbidden},
		{game.ErrSabotageCooldown, http.StatusForbidden},
		{game.ErrSabotageShielded, http.StatusForbidden},
		{game.ErrMissionLogRestricted, http.StatusForbidden},
		{game.ErrAccountNotFound, http.StatusNotFound},
		{game.ErrMissionLogNotFound, http.StatusNotFound},
		{errors.New("pg connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/missions", nil)
		s.writeDomainError(rec, req, tc.err)
		if rec.Code != tc.want {
			t.Errorf("writeDomainError(%v) = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestWriteDomainErrorHidesInternalDetail(t *testing.T) {
	s := &Server{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/account", nil)

	s.writeDomainError(rec, req, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	body := rec.Body.String()
	if strings.Contains(body, "10.0.0.5") {
		t.Fatalf("internal detail leaked to the client: %s", body)
	}
	if !strings.Contains(body, "internal error") {
		t.Fatalf("expected generic message, got %s", body)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/missions",
		strings.NewReader(`{"defender_id": 2, "launch_nukes": true}`))
	var in struct {
		DefenderID int64 `json:"defender_id"`
	}
	if err := decodeJSON(req, &in); err == nil {
		t.Fatal("unknown field should be rejected")
	}
}

func TestAccountLimiters(t *testing.T) {
	l := newAccountLimiters(0, 2)

	// Zero refill rate: only the burst is spendable.
	if !l.allow(1) || !l.allow(1) {
		t.Fatal("burst tokens should be available")
	}
	if l.allow(1) {
		t.Fatal("third call should be throttled")
	}
	// Separate accounts have separate buckets.
	if !l.allow(2) {
		t.Fatal("second account should have its own bucket")
	}
}

func TestAccountLimitersEvictIdleBuckets(t *testing.T) {
	l := newAccountLimiters(0, 1)
	if !l.allow(1) {
		t.Fatal("first call should pass")
	}
	if l.allow(1) {
		t.Fatal("bucket should be drained")
	}

	l.mu.Lock()
	l.evictIdleLocked(time.Now().Add(2 * limiterIdleTTL))
	remaining := len(l.m)
	l.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("idle buckets remaining after eviction: %d", remaining)
	}

	// A returning account gets a fresh bucket.
	if !l.allow(1) {
		t.Fatal("evicted account should start over with a full burst")
	}
}
