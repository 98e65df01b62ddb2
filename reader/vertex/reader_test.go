package vertex

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Rockazim/vertex-funding-rates/config"
	"github.com/Rockazim/vertex-funding-rates/models"
)

func newTestClient(assetsURL, archiveURL string) *Client {
	cfg := config.DefaultConfig()
	cfg.Vertex.AssetsURL = assetsURL
	cfg.Vertex.ArchiveURL = archiveURL
	cfg.Vertex.BatchDelay = 0
	cfg.Vertex.RequestTimeout = config.Duration(5 * time.Second)
	return NewClient(cfg)
}

func TestLoadMappingUpdateAndSuppression(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Asset{
			{ProductID: 1, TickerID: "BTC-PERP"},
			{ProductID: 2, TickerID: "ETH-PERP"},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")

	mapping, changed, err := c.LoadMapping(context.Background(), nil)
	if err != nil {
		t.Fatalf("load mapping: %v", err)
	}
	if !changed {
		t.Fatalf("first load should replace the empty mapping")
	}
	if ticker, _ := mapping.Ticker(1); ticker != "BTC-PERP" {
		t.Errorf("unexpected ticker: %s", ticker)
	}

	// Identical id set: the previous mapping object must be kept as is.
	again, changed, err := c.LoadMapping(context.Background(), mapping)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if changed {
		t.Errorf("identical id set must not replace the mapping")
	}
	if again != mapping {
		t.Errorf("expected the previous mapping object to be returned")
	}
}

func TestLoadMappingErrorKeepsPrevious(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	prev := models.NewProductMapping([]models.Asset{{ProductID: 1, TickerID: "BTC-PERP"}})
	c := newTestClient(srv.URL, "")

	mapping, changed, err := c.LoadMapping(context.Background(), prev)
	if err == nil {
		t.Fatalf("expected error from failing endpoint")
	}
	if changed {
		t.Errorf("failed load must not report a change")
	}
	if mapping != prev {
		t.Errorf("failed load must keep the previous mapping")
	}
}

func TestFetchSnapshotsRequestShape(t *testing.T) {
	var got models.ArchiveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(models.ArchiveResponse{Snapshots: []models.Snapshot{
			{Timestamp: 7200, FundingRates: map[string]string{"1": "2400000000000000000"}},
		}})
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL)
	c.now = func() time.Time { return time.Unix(10000, 0) }

	snapshots, err := c.FetchSnapshots(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("fetch snapshots: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("unexpected snapshot count: %d", len(snapshots))
	}

	interval := got.MarketSnapshots.Interval
	if interval.Count != 72 {
		t.Errorf("unexpected count: %d", interval.Count)
	}
	if interval.Granularity != 3600 {
		t.Errorf("unexpected granularity: %d", interval.Granularity)
	}
	// 10000 rounded down to the hour is 7200, plus the 5s margin.
	if interval.MaxTime != 7205 {
		t.Errorf("unexpected max_time: %d", interval.MaxTime)
	}
	ids := got.MarketSnapshots.ProductIDs
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("unexpected product ids: %v", ids)
	}
}

func TestFetchSnapshotsGzipResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The archive endpoint compresses responses whenever the client
		// offers gzip, which the transport must negotiate on its own so
		// that it also decodes transparently.
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			t.Errorf("client does not offer gzip: %q", r.Header.Get("Accept-Encoding"))
		}
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		json.NewEncoder(gz).Encode(models.ArchiveResponse{Snapshots: []models.Snapshot{
			{Timestamp: 3600, FundingRates: map[string]string{"1": "2400000000000000000"}},
		}})
		if err := gz.Close(); err != nil {
			t.Errorf("close gzip writer: %v", err)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "application/json")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL)
	snapshots, err := c.FetchSnapshots(context.Background(), []int64{1})
	if err != nil {
		t.Fatalf("fetch snapshots: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("unexpected snapshot count: %d", len(snapshots))
	}
	if snapshots[0].FundingRates["1"] != "2400000000000000000" {
		t.Errorf("unexpected funding rate: %v", snapshots[0].FundingRates)
	}
}

func TestFetchSnapshotsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL)
	snapshots, err := c.FetchSnapshots(context.Background(), []int64{1})
	if err != nil {
		t.Fatalf("fetch snapshots: %v", err)
	}
	if len(snapshots) != 0 {
		t.Errorf("expected no snapshots, got %d", len(snapshots))
	}
}

func TestFetchSnapshotsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL)
	if _, err := c.FetchSnapshots(context.Background(), []int64{1}); err == nil {
		t.Fatalf("expected error from failing endpoint")
	}
}
