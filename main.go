package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Rockazim/vertex-funding-rates/config"
	"github.com/Rockazim/vertex-funding-rates/internal/pipeline"
	"github.com/Rockazim/vertex-funding-rates/logger"
	"github.com/Rockazim/vertex-funding-rates/reader/vertex"
	"github.com/Rockazim/vertex-funding-rates/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "", "Path to configuration file (optional, defaults apply)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	}).Info("starting vertex funding rates report")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := vertex.NewClient(cfg)
	report := writer.NewReportWriter(cfg)

	var uploader *writer.S3Uploader
	if cfg.Storage.S3.Enabled {
		uploader, err = writer.NewS3Uploader(ctx, cfg)
		if err != nil {
			log.WithError(err).Error("failed to create S3 uploader")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("S3 storage disabled; skipping uploader")
	}

	run := pipeline.New(cfg, client, client, report, uploader)
	if err := run.Run(ctx); err != nil {
		if errors.Is(err, pipeline.ErrNoSnapshots) {
			// Nothing to report on; already logged by the pipeline.
			return
		}
		log.WithError(err).Error("run failed")
		os.Exit(1)
	}

	log.WithComponent("main").Info("run completed")
}
