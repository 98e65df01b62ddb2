package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Rockazim/vertex-funding-rates/logger"
	"github.com/Rockazim/vertex-funding-rates/models"
)

// LoadMapping fetches the latest product mapping from the assets endpoint.
// The previous mapping is returned unchanged when the fetched set of product
// ids matches it, or when the request fails. The boolean reports whether the
// mapping was replaced.
func (c *Client) LoadMapping(ctx context.Context, prev *models.ProductMapping) (*models.ProductMapping, bool, error) {
	log := c.log.WithComponent("vertex_client").WithFields(logger.Fields{"operation": "load_mapping"})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Vertex.AssetsURL, nil)
	if err != nil {
		return prev, false, fmt.Errorf("create assets request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Error("failed to fetch product symbols")
		return prev, false, fmt.Errorf("fetch assets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.WithFields(logger.Fields{"status": resp.StatusCode}).Error("assets endpoint returned non-200 status")
		return prev, false, fmt.Errorf("assets endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var assets []models.Asset
	if err := json.NewDecoder(resp.Body).Decode(&assets); err != nil {
		log.WithError(err).Error("failed to decode assets response")
		return prev, false, fmt.Errorf("decode assets: %w", err)
	}

	next := models.NewProductMapping(assets)
	if next.SameIDSet(prev) {
		log.Info("no new product mapping found")
		return prev, false, nil
	}

	log.WithFields(logger.Fields{"products": next.Len()}).Info("product mapping updated")
	return next, true, nil
}
