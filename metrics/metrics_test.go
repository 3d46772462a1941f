package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveGame(3, 5, 2.5)
	m.ObserveGame(7, 7, 3.5)
	m.ObserveLoss(0.25)

	if v := testutil.ToFloat64(m.Games); v != 2 {
		t.Errorf("expected 2 games, got %v", v)
	}
	if v := testutil.ToFloat64(m.Score); v != 7 {
		t.Errorf("expected last score 7, got %v", v)
	}
	if v := testutil.ToFloat64(m.Mean); v != 3.5 {
		t.Errorf("expected mean 3.5, got %v", v)
	}
	if v := testutil.ToFloat64(m.Loss); v != 0.25 {
		t.Errorf("expected loss 0.25, got %v", v)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveGame(1, 1, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "snake_rl_games_total 1") {
		t.Errorf("games counter missing from output:\n%s", body)
	}
}
