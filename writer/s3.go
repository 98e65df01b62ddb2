package writer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	parquetwriter "github.com/xitongsys/parquet-go/writer"

	appconfig "github.com/Rockazim/vertex-funding-rates/config"
	"github.com/Rockazim/vertex-funding-rates/logger"
	"github.com/Rockazim/vertex-funding-rates/models"
)

// FundingRateRecord is the parquet row schema of the archived entries.
type FundingRateRecord struct {
	Ticker        string  `parquet:"name=ticker, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp     int64   `parquet:"name=timestamp, type=INT64"`
	HourlyRatePct float64 `parquet:"name=hourly_rate_pct, type=DOUBLE"`
	Fallback      bool    `parquet:"name=fallback, type=BOOLEAN"`
}

// memoryFileWriter implements the ParquetFile interface for in-memory writing
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	// Only sequential writes are needed here.
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

// S3Uploader ships the finished report and a parquet archive of the computed
// funding entries to an S3 bucket. It is only constructed when S3 storage is
// enabled in the configuration.
type S3Uploader struct {
	config *appconfig.Config
	client *s3.Client
	log    *logger.Log
}

// NewS3Uploader configures the AWS SDK and validates credentials.
func NewS3Uploader(ctx context.Context, cfg *appconfig.Config) (*S3Uploader, error) {
	log := logger.GetLogger()

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Storage.S3.Region)}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("s3_uploader").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	uploader := &S3Uploader{
		config: cfg,
		client: s3.NewFromConfig(awsCfg),
		log:    log,
	}

	log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"region": cfg.Storage.S3.Region,
		"bucket": cfg.Storage.S3.Bucket,
	}).Debug("s3 uploader initialized")

	return uploader, nil
}

// UploadReport stores the rendered report under a timestamped key.
func (u *S3Uploader) UploadReport(ctx context.Context, report []byte, generatedAt time.Time) error {
	key := u.objectKey(fmt.Sprintf("vertexrates-%s.txt", generatedAt.UTC().Format("20060102T150405Z")))

	if _, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(report),
		ContentType: aws.String("text/plain; charset=utf-8"),
	}); err != nil {
		return fmt.Errorf("upload report to s3: %w", err)
	}

	u.log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"key":   key,
		"bytes": len(report),
	}).Info("report uploaded to s3")
	return nil
}

// UploadArchive stores all computed funding entries as a parquet object so
// downstream jobs can query the raw hourly series behind the report.
func (u *S3Uploader) UploadArchive(ctx context.Context, book *models.FundingBook, generatedAt time.Time) error {
	mfw := newMemoryFileWriter()
	pw, err := parquetwriter.NewParquetWriter(mfw, new(FundingRateRecord), 1)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	rows := 0
	for _, ticker := range book.Tickers() {
		for _, entry := range book.Entries(ticker) {
			rec := FundingRateRecord{
				Ticker:        ticker,
				Timestamp:     entry.Timestamp,
				HourlyRatePct: entry.HourlyRatePct,
				Fallback:      entry.Fallback,
			}
			if err := pw.Write(rec); err != nil {
				return fmt.Errorf("write parquet row: %w", err)
			}
			rows++
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}

	key := u.objectKey(fmt.Sprintf("funding-entries-%s-%s.parquet",
		generatedAt.UTC().Format("20060102T150405Z"), uuid.New().String()))

	if _, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(mfw.Bytes()),
		ContentType: aws.String("application/octet-stream"),
	}); err != nil {
		return fmt.Errorf("upload archive to s3: %w", err)
	}

	u.log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"key":  key,
		"rows": rows,
	}).Info("funding entries archived to s3")
	return nil
}

func (u *S3Uploader) objectKey(name string) string {
	prefix := strings.Trim(u.config.Storage.S3.Prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
