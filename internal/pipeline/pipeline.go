package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appconfig "github.com/Rockazim/vertex-funding-rates/config"
	"github.com/Rockazim/vertex-funding-rates/logger"
	"github.com/Rockazim/vertex-funding-rates/models"
	"github.com/Rockazim/vertex-funding-rates/processor"
	"github.com/Rockazim/vertex-funding-rates/writer"
)

// ErrNoSnapshots is returned when every batch came back empty and there is
// nothing to report on.
var ErrNoSnapshots = errors.New("no snapshots retrieved")

// MappingLoader loads the product-id to ticker mapping, keeping the previous
// mapping when the id set is unchanged or the request fails.
type MappingLoader interface {
	LoadMapping(ctx context.Context, prev *models.ProductMapping) (*models.ProductMapping, bool, error)
}

// SnapshotFetcher retrieves historical snapshots for one batch of product ids.
type SnapshotFetcher interface {
	FetchSnapshots(ctx context.Context, productIDs []int64) ([]models.Snapshot, error)
}

// Pipeline runs the fetch, transform, aggregate and report stages strictly in
// sequence. The product mapping is threaded through explicitly; there is no
// shared global state.
type Pipeline struct {
	config   *appconfig.Config
	loader   MappingLoader
	fetcher  SnapshotFetcher
	report   *writer.ReportWriter
	uploader *writer.S3Uploader
	log      *logger.Log

	// mapping survives across runs so repeated runs can suppress
	// no-op mapping replacements.
	mapping *models.ProductMapping
}

func New(cfg *appconfig.Config, loader MappingLoader, fetcher SnapshotFetcher, report *writer.ReportWriter, uploader *writer.S3Uploader) *Pipeline {
	return &Pipeline{
		config:   cfg,
		loader:   loader,
		fetcher:  fetcher,
		report:   report,
		uploader: uploader,
		log:      logger.GetLogger(),
	}
}

// Run executes one full pass: mapping load, batched snapshot fetch, rate
// conversion, averaging and the report write. A failing batch is skipped; a
// run with zero snapshots ends early with ErrNoSnapshots and writes nothing.
func (p *Pipeline) Run(ctx context.Context) error {
	log := p.log.WithComponent("pipeline")

	mapping, _, err := p.loader.LoadMapping(ctx, p.mapping)
	if err != nil {
		// Already logged by the loader; the previous mapping stays in use.
		log.WithError(err).Warn("mapping load failed, keeping previous mapping")
	}
	p.mapping = mapping

	ids := mapping.IDs()
	log.WithFields(logger.Fields{"product_ids": ids}).Info("using product ids")

	batchSize := processor.BatchSize(p.config.Vertex.SnapshotLimit, p.config.Vertex.SnapshotCount)
	log.WithFields(logger.Fields{"max_batch_size": batchSize}).Info("computed max batch size")

	var all []models.Snapshot
	for _, batch := range processor.Chunk(ids, batchSize) {
		snapshots, err := p.fetcher.FetchSnapshots(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Logged by the fetcher with the failing batch; skip it.
			continue
		}
		all = append(all, snapshots...)
	}

	if len(all) == 0 {
		log.Warn("no snapshots retrieved")
		return ErrNoSnapshots
	}

	if raw, err := json.MarshalIndent(all[0], "", "  "); err == nil {
		log.WithFields(logger.Fields{"snapshot": string(raw)}).Debug("first raw snapshot")
	}

	book := processor.ProcessFundingRates(all, mapping)
	rates := processor.AverageRates(book, p.config.Report.AveragingDivisorDays)

	if err := p.report.Write(rates); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if p.uploader != nil {
		p.upload(ctx, rates, book)
	}

	return nil
}

// upload ships the report and entry archive to S3. Upload failures are logged
// but never fail the run; the local report is already on disk.
func (p *Pipeline) upload(ctx context.Context, rates []models.AverageRate, book *models.FundingBook) {
	log := p.log.WithComponent("pipeline")
	now := time.Now()

	if err := p.uploader.UploadReport(ctx, writer.RenderReport(rates), now); err != nil {
		log.WithError(err).Warn("report upload failed")
	}
	if err := p.uploader.UploadArchive(ctx, book, now); err != nil {
		log.WithError(err).Warn("archive upload failed")
	}
}
