// Package s3 provides the S3 adapter for archiving resolved purchase intents.
package s3

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/motorlot/saleverify/internal/ports/outbound"
)

// s3WriterAPI defines the subset of S3 operations needed by the AuditWriter.
type s3WriterAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Compile-time check that AuditWriter implements outbound.AuditWriter
var _ outbound.AuditWriter = (*AuditWriter)(nil)

// Config holds configuration for the S3 audit writer.
type Config struct {
	// Bucket is the S3 bucket audit archives are written to.
	Bucket string

	// CompressGzip enables gzip compression of archive bodies.
	CompressGzip bool
}

// AuditWriter stores audit archive objects in S3. Bodies are JSON Lines, one
// resolved purchase intent per line.
type AuditWriter struct {
	client s3WriterAPI
	config Config
	logger *slog.Logger
}

// NewAuditWriter creates a new S3 audit writer with the given AWS config.
func NewAuditWriter(cfg aws.Config, config Config, logger *slog.Logger) (*AuditWriter, error) {
	return newAuditWriter(s3.NewFromConfig(cfg), config, logger)
}

func newAuditWriter(client s3WriterAPI, config Config, logger *slog.Logger) (*AuditWriter, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditWriter{
		client: client,
		config: config,
		logger: logger.With("component", "s3-audit-writer"),
	}, nil
}

// Write stores body under the given key, overwriting any previous object.
func (w *AuditWriter) Write(ctx context.Context, key string, body []byte) error {
	var contentEncoding *string
	if w.config.CompressGzip {
		var buf bytes.Buffer
		gzWriter := gzip.NewWriter(&buf)
		if _, err := gzWriter.Write(body); err != nil {
			return fmt.Errorf("failed to compress archive: %w", err)
		}
		if err := gzWriter.Close(); err != nil {
			return fmt.Errorf("failed to close gzip writer: %w", err)
		}
		body = buf.Bytes()
		contentEncoding = aws.String("gzip")
	}

	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(w.config.Bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentType:     aws.String("application/jsonl"),
		ContentEncoding: contentEncoding,
	})
	if err != nil {
		return fmt.Errorf("failed to write audit archive to S3: %w", err)
	}

	w.logger.Debug("wrote audit archive", "bucket", w.config.Bucket, "key", key, "bytes", len(body))
	return nil
}
