package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/Rockazim/vertex-funding-rates/logger"
	"github.com/Rockazim/vertex-funding-rates/models"
)

// FetchSnapshots queries the archive endpoint for historical market snapshots
// covering the given batch of product ids. The query cutoff is the current
// time rounded down to the nearest granularity boundary plus a small safety
// margin, so the boundary lands just past a completed interval.
//
// Failures are logged together with the failing batch and surface as an
// error; callers skip the batch rather than aborting the run. A response
// without snapshots yields an empty slice.
func (c *Client) FetchSnapshots(ctx context.Context, productIDs []int64) ([]models.Snapshot, error) {
	batchID := uuid.New().String()
	log := c.log.WithComponent("vertex_client").WithFields(logger.Fields{
		"operation":   "fetch_snapshots",
		"batch_id":    batchID,
		"product_ids": productIDs,
	})

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			log.WithError(err).Warn("rate limiter wait failed")
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	granularity := c.config.Vertex.GranularitySeconds
	now := c.now().Unix()
	cutoff := now - now%granularity + c.config.Vertex.MaxTimeMargin

	payload := models.ArchiveRequest{
		MarketSnapshots: models.MarketSnapshotsQuery{
			Interval: models.SnapshotInterval{
				Count:       c.config.Vertex.SnapshotCount,
				Granularity: granularity,
				MaxTime:     cutoff,
			},
			ProductIDs: productIDs,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal archive request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Vertex.ArchiveURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create archive request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Compression is left to the transport: setting Accept-Encoding by hand
	// disables Go's transparent gzip decoding and the raw compressed body
	// would reach the JSON decoder.

	log.WithFields(logger.Fields{"max_time": cutoff}).Debug("fetching snapshots for batch")

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Error("failed to fetch historical funding rates")
		return nil, fmt.Errorf("fetch snapshots: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.WithFields(logger.Fields{"status": resp.StatusCode}).Error("archive endpoint returned non-200 status")
		return nil, fmt.Errorf("archive endpoint returned status %d: %s", resp.StatusCode, snippet)
	}

	var archive models.ArchiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&archive); err != nil {
		log.WithError(err).Error("failed to decode archive response")
		return nil, fmt.Errorf("decode archive response: %w", err)
	}

	log.WithFields(logger.Fields{"snapshots": len(archive.Snapshots)}).Debug("batch fetched")
	return archive.Snapshots, nil
}
