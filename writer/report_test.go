package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	appconfig "github.com/Rockazim/vertex-funding-rates/config"
	"github.com/Rockazim/vertex-funding-rates/models"
)

func TestRenderReport(t *testing.T) {
	body := RenderReport([]models.AverageRate{
		{Ticker: "BTC-PERP", Rate: 172.8},
		{Ticker: "ETH-PERP", Rate: -0.5},
	})

	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("unexpected line count: %d", len(lines))
	}
	if lines[0] != "Ticker\tAverage Funding Rate (%)" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "---") {
		t.Errorf("unexpected separator: %q", lines[1])
	}
	if lines[2] != "BTC-PERP\t172.800000" {
		t.Errorf("unexpected first row: %q", lines[2])
	}
	if lines[3] != "ETH-PERP\t-0.500000" {
		t.Errorf("unexpected second row: %q", lines[3])
	}
}

func TestRenderReportLineCount(t *testing.T) {
	rates := []models.AverageRate{
		{Ticker: "A-PERP", Rate: 1},
		{Ticker: "B-PERP", Rate: 2},
		{Ticker: "C-PERP", Rate: 3},
	}
	body := RenderReport(rates)
	// header + separator + one row per ticker
	if got := bytes.Count(body, []byte("\n")); got != 2+len(rates) {
		t.Errorf("unexpected line count: %d", got)
	}
}

func TestReportWriterWritesFileAndEchoes(t *testing.T) {
	cfg := appconfig.DefaultConfig()
	cfg.Report.Path = filepath.Join(t.TempDir(), "vertexrates.txt")

	var echo bytes.Buffer
	w := NewReportWriter(cfg)
	w.echo = &echo

	rates := []models.AverageRate{{Ticker: "BTC-PERP", Rate: 172.8}}
	if err := w.Write(rates); err != nil {
		t.Fatalf("write report: %v", err)
	}

	data, err := os.ReadFile(cfg.Report.Path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "BTC-PERP\t172.800000") {
		t.Errorf("report missing ranked row: %s", data)
	}
	if !strings.Contains(echo.String(), "BTC-PERP: 172.800000%") {
		t.Errorf("console echo missing row: %s", echo.String())
	}
}

func TestReportWriterOverwrites(t *testing.T) {
	cfg := appconfig.DefaultConfig()
	cfg.Report.Path = filepath.Join(t.TempDir(), "vertexrates.txt")
	if err := os.WriteFile(cfg.Report.Path, []byte("stale content\n"), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w := NewReportWriter(cfg)
	w.echo = &bytes.Buffer{}
	if err := w.Write(nil); err != nil {
		t.Fatalf("write report: %v", err)
	}

	data, err := os.ReadFile(cfg.Report.Path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if strings.Contains(string(data), "stale") {
		t.Errorf("report was not overwritten: %s", data)
	}
}

func TestReportWriterPathFailure(t *testing.T) {
	cfg := appconfig.DefaultConfig()
	cfg.Report.Path = filepath.Join(t.TempDir(), "missing-dir", "vertexrates.txt")

	w := NewReportWriter(cfg)
	w.echo = &bytes.Buffer{}
	if err := w.Write(nil); err == nil {
		t.Fatalf("expected error for unwritable path")
	}
}
