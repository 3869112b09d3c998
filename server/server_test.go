package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hb9tf/sweeprx/export"
	"github.com/hb9tf/sweeprx/sdr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCollect(t *testing.T) {
	segments := make(chan sdr.Segment, 10)
	s := &CatalogServer{segments: segments}

	body, _ := json.Marshal([]sdr.Segment{
		{Identifier: "rx1", FreqCenter: 100e6, Outcome: "completed", Start: base},
		{Identifier: "rx1", FreqCenter: 105e6, Outcome: "faulted", Fault: "timeout", Start: base},
	})
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, collectEndpoint, bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var resp export.CollectResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %s", err)
	}
	if resp.SegmentCount != 2 || resp.Status != "ok" {
		t.Errorf("response = %+v", resp)
	}
	if got := len(segments); got != 2 {
		t.Fatalf("%d segments queued, want 2", got)
	}
	if seg := <-segments; seg.FreqCenter != 100e6 || !seg.Start.Equal(base) {
		t.Errorf("first segment = %+v", seg)
	}
}

func TestCollectBadRequest(t *testing.T) {
	s := &CatalogServer{segments: make(chan sdr.Segment, 1)}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, collectEndpoint, bytes.NewBufferString("{not json")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSegments(t *testing.T) {
	db, err := export.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %s", err)
	}
	defer db.Close()
	ch := make(chan sdr.Segment, 3)
	ch <- sdr.Segment{Identifier: "rx1", Source: "sim", FreqCenter: 100e6, Outcome: "completed", Start: base, End: base}
	ch <- sdr.Segment{Identifier: "rx1", Source: "sim", FreqCenter: 105e6, Outcome: "completed", Start: base.Add(time.Minute), End: base.Add(time.Minute)}
	ch <- sdr.Segment{Identifier: "rx2", Source: "sim", FreqCenter: 433e6, Outcome: "stopped", Start: base, End: base}
	close(ch)
	if err := (&export.SQL{DB: db}).Write(context.Background(), ch); err != nil {
		t.Fatalf("Write: %s", err)
	}

	s := &CatalogServer{db: db}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, segmentsEndpoint+"?id=rx1&startFreq=101000000&startTime=2024-03-01T12:00:00Z", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var got []sdr.Segment
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %s", err)
	}
	if len(got) != 1 || got[0].FreqCenter != 105e6 {
		t.Errorf("got %+v, want the 105 MHz segment", got)
	}
}

func TestSegmentsErrors(t *testing.T) {
	w := httptest.NewRecorder()
	(&CatalogServer{}).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, segmentsEndpoint, nil))
	if w.Code != http.StatusNotImplemented {
		t.Errorf("without DB: status = %d, want 501", w.Code)
	}

	db, err := export.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %s", err)
	}
	defer db.Close()
	w = httptest.NewRecorder()
	(&CatalogServer{db: db}).Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, segmentsEndpoint+"?limit=many", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", w.Code)
	}
}
