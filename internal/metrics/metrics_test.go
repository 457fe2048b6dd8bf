package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	m := New()

	if m == nil {
		t.Fatal("New returned nil")
	}

	if m.registry == nil {
		t.Error("Registry is nil")
	}

	if m.LoadsTotal == nil {
		t.Error("LoadsTotal is nil")
	}
	if m.LoadDuration == nil {
		t.Error("LoadDuration is nil")
	}
	if m.GeneratesTotal == nil {
		t.Error("GeneratesTotal is nil")
	}
	if m.GenerateDuration == nil {
		t.Error("GenerateDuration is nil")
	}
	if m.SessionsActive == nil {
		t.Error("SessionsActive is nil")
	}
	if m.SweepsTotal == nil {
		t.Error("SweepsTotal is nil")
	}
	if m.SessionsSweptTotal == nil {
		t.Error("SessionsSweptTotal is nil")
	}
}

func TestHandler(t *testing.T) {
	m := New()

	m.LoadsTotal.WithLabelValues("ok").Inc()
	m.SessionsActive.Set(3)
	m.SweepsTotal.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"template_loads_total",
		"template_sessions_active 3",
		"session_sweeps_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
