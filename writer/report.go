package writer

import (
	"bytes"
	"fmt"
	"io"
	"os"

	appconfig "github.com/Rockazim/vertex-funding-rates/config"
	"github.com/Rockazim/vertex-funding-rates/logger"
	"github.com/Rockazim/vertex-funding-rates/models"
)

const (
	reportHeader    = "Ticker\tAverage Funding Rate (%)\n"
	reportSeparator = "---------------------------------\n"
)

// RenderReport produces the tab-separated report body: header, separator,
// then one line per ticker with the average formatted to 6 decimal places.
func RenderReport(rates []models.AverageRate) []byte {
	var buf bytes.Buffer
	buf.WriteString(reportHeader)
	buf.WriteString(reportSeparator)
	for _, r := range rates {
		fmt.Fprintf(&buf, "%s\t%.6f\n", r.Ticker, r.Rate)
	}
	return buf.Bytes()
}

// ReportWriter writes the ranked report to the configured path, overwriting
// any existing file, and echoes the ranking to the console.
type ReportWriter struct {
	config *appconfig.Config
	log    *logger.Log
	echo   io.Writer
}

func NewReportWriter(cfg *appconfig.Config) *ReportWriter {
	return &ReportWriter{
		config: cfg,
		log:    logger.GetLogger(),
		echo:   os.Stdout,
	}
}

// Write renders and persists the report. A filesystem failure here is the
// only fatal error of the reporting stage and propagates to the caller.
func (w *ReportWriter) Write(rates []models.AverageRate) error {
	path := w.config.Report.Path
	body := RenderReport(rates)

	if err := os.WriteFile(path, body, 0644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}

	for _, r := range rates {
		fmt.Fprintf(w.echo, "%s: %.6f%%\n", r.Ticker, r.Rate)
	}

	w.log.WithComponent("report_writer").WithFields(logger.Fields{
		"path":    path,
		"tickers": len(rates),
	}).Info("report written")
	return nil
}
