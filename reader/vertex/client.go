package vertex

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Rockazim/vertex-funding-rates/config"
	"github.com/Rockazim/vertex-funding-rates/logger"
)

// Client talks to the Vertex gateway and archive endpoints. Archive calls
// are paced by a rate limiter so consecutive batch requests respect the
// configured inter-batch delay.
type Client struct {
	config  *config.Config
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Log

	// now is the clock used for cutoff computation, replaceable in tests.
	now func() time.Time
}

// NewClient creates a Vertex API client with an explicit request timeout.
func NewClient(cfg *config.Config) *Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  false,
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.Vertex.RequestTimeout),
	}

	var limiter *rate.Limiter
	if cfg.Vertex.BatchDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(cfg.Vertex.BatchDelay)), 1)
	}

	log := logger.GetLogger()
	log.WithComponent("vertex_client").WithFields(logger.Fields{
		"assets_url":  cfg.Vertex.AssetsURL,
		"archive_url": cfg.Vertex.ArchiveURL,
		"timeout":     cfg.Vertex.RequestTimeout,
		"batch_delay": cfg.Vertex.BatchDelay,
	}).Debug("vertex client initialized")

	return &Client{
		config:  cfg,
		http:    httpClient,
		limiter: limiter,
		log:     log,
		now:     time.Now,
	}
}
