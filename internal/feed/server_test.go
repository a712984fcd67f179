package feed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Players:   []PlayerStatus{{ID: 0, Score: 2}, {ID: 1, Automated: true, Score: 1}},
		Grid:      []int{4, 5, 6},
		Admission: true,
		Time:      time.UnixMilli(1000),
	}
}

func TestStartIsDisabledBySettings(t *testing.T) {
	s := NewServer(Settings{Enabled: false}, testSnapshot)
	if err := s.Start(); err == nil {
		t.Fatal("expected an error from a disabled server")
	}
	if err := s.Shutdown(nil); err != nil {
		t.Fatalf("Shutdown before Start must be a no-op, got %v", err)
	}
}

func TestScoresHandlerServesSnapshot(t *testing.T) {
	s := NewServer(Settings{Enabled: true, Addr: "127.0.0.1:0"}, testSnapshot)

	req := httptest.NewRequest(http.MethodGet, "/scores", nil)
	rec := httptest.NewRecorder()
	s.handleScores(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Players) != 2 || got.Players[0].Score != 2 || !got.Players[1].Automated {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if !got.Admission || len(got.Grid) != 3 {
		t.Fatalf("unexpected grid state %+v", got)
	}
}

func TestScoresHandlerRejectsNonGet(t *testing.T) {
	s := NewServer(Settings{Enabled: true}, testSnapshot)
	req := httptest.NewRequest(http.MethodPost, "/scores", nil)
	rec := httptest.NewRecorder()
	s.handleScores(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHealthHandlerReportsStatus(t *testing.T) {
	now := time.UnixMilli(10_000)
	s := NewServer(Settings{Enabled: true}, testSnapshot,
		ServerWithClock(func() time.Time { return now }))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got struct {
		Status ServerStatus `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != StatusStarting {
		t.Fatalf("expected status %q before Start, got %q", StatusStarting, got.Status)
	}
}

func TestStartServesOverHTTP(t *testing.T) {
	s := NewServer(Settings{Enabled: true, Addr: "127.0.0.1:0"}, testSnapshot)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown(nil) })

	if s.Status() != StatusReady {
		t.Fatalf("expected status ready, got %q", s.Status())
	}
	resp, err := http.Get("http://" + s.Addr() + "/scores")
	if err != nil {
		t.Fatalf("GET /scores: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
