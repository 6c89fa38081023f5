// Package storage provides S3-compatible object storage for raw message
// files.
//
// Messages are stored content-addressed: each object key is the BLAKE3
// hash of the message bytes, so the same message uploaded twice occupies
// a single object. Reads buffer the whole object so callers get an
// io.ReadSeekCloser, which the MIME parser needs for random access to
// body parts.
//
// # Usage
//
//	s3, err := storage.New(&cfg.S3)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	key, err := s3.PutMessage(ctx, raw)
//	msg, err := s3.GetMessage(ctx, key)
//
// Transient failures are retried with exponential backoff.
package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"lukechampine.com/blake3"

	"github.com/neomutt/neomutt-sub017/config"
	"github.com/neomutt/neomutt-sub017/logger"
	"github.com/neomutt/neomutt-sub017/pkg/metrics"
	"github.com/neomutt/neomutt-sub017/pkg/retry"
)

// ErrNotFound is returned when the requested message is not in the bucket.
var ErrNotFound = errors.New("message not found")

type S3Storage struct {
	Client     *minio.Client
	BucketName string

	backoff retry.BackoffConfig
}

// New builds a storage client from configuration.
func New(cfg *config.S3Config) (*S3Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.TLS,
	})
	if err != nil {
		logger.Error("STORAGE: Failed to initialize MinIO client", "error", err)
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	if cfg.Trace {
		client.TraceOn(os.Stdout)
	}

	return &S3Storage{
		Client:     client,
		BucketName: cfg.Bucket,
		backoff:    retry.DefaultBackoffConfig(),
	}, nil
}

// Digest returns the content-address key for a raw message.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Exists checks whether an object with the given key is in the bucket.
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Client.StatObject(ctx, s.BucketName, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) && minioErr.StatusCode == 404 {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat object %s: %w", key, err)
}

// PutMessage uploads a raw message and returns its content-address key.
// Uploading a message that is already stored is a no-op.
func (s *S3Storage) PutMessage(ctx context.Context, data []byte) (string, error) {
	key := Digest(data)
	start := time.Now()

	exists, err := s.Exists(ctx, key)
	if err == nil && exists {
		logger.Debug("STORAGE: message already stored", "key", key)
		metrics.S3OperationsTotal.WithLabelValues("PUT", "deduplicated").Inc()
		return key, nil
	}

	err = retry.WithRetry(ctx, func() error {
		_, putErr := s.Client.PutObject(ctx, s.BucketName, key,
			bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{SendContentMd5: true})
		return putErr
	}, s.backoff)
	if err != nil {
		metrics.StorageOperationErrors.WithLabelValues("PUT", classifyS3Error(err)).Inc()
		metrics.S3OperationsTotal.WithLabelValues("PUT", "error").Inc()
		metrics.S3OperationDuration.WithLabelValues("PUT").Observe(time.Since(start).Seconds())
		return "", fmt.Errorf("failed to store message %s: %w", key, err)
	}

	metrics.S3OperationsTotal.WithLabelValues("PUT", "success").Inc()
	metrics.S3OperationDuration.WithLabelValues("PUT").Observe(time.Since(start).Seconds())
	return key, nil
}

// readSeekCloser adapts an in-memory buffer to io.ReadSeekCloser.
type readSeekCloser struct {
	*bytes.Reader
}

func (readSeekCloser) Close() error { return nil }

// GetMessage fetches a message by key. The whole object is buffered so
// the returned reader supports seeking.
func (s *S3Storage) GetMessage(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	start := time.Now()

	var data []byte
	err := retry.WithRetryAdvanced(ctx, func() error {
		object, getErr := s.Client.GetObject(ctx, s.BucketName, key, minio.GetObjectOptions{})
		if getErr != nil {
			return getErr
		}
		defer object.Close()

		data, getErr = io.ReadAll(object)
		if getErr != nil {
			var minioErr minio.ErrorResponse
			if errors.As(getErr, &minioErr) && minioErr.StatusCode == 404 {
				return retry.Stop(ErrNotFound)
			}
		}
		return getErr
	}, s.backoff)
	if err != nil {
		metrics.StorageOperationErrors.WithLabelValues("GET", classifyS3Error(err)).Inc()
		metrics.S3OperationsTotal.WithLabelValues("GET", "error").Inc()
		metrics.S3OperationDuration.WithLabelValues("GET").Observe(time.Since(start).Seconds())
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to fetch message %s: %w", key, err)
	}

	metrics.S3OperationsTotal.WithLabelValues("GET", "success").Inc()
	metrics.S3OperationDuration.WithLabelValues("GET").Observe(time.Since(start).Seconds())
	return readSeekCloser{bytes.NewReader(data)}, nil
}

// Delete removes a message. Deleting a missing message is not an error.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	start := time.Now()

	exists, err := s.Exists(ctx, key)
	if err != nil {
		logger.Error("STORAGE: Error checking existence of object", "key", key, "error", err)
		metrics.S3OperationsTotal.WithLabelValues("DELETE", "error").Inc()
		metrics.S3OperationDuration.WithLabelValues("DELETE").Observe(time.Since(start).Seconds())
		return err
	}
	if !exists {
		logger.Info("STORAGE: Object does not exist in S3 - skipping deletion", "key", key)
		metrics.S3OperationsTotal.WithLabelValues("DELETE", "skipped").Inc()
		metrics.S3OperationDuration.WithLabelValues("DELETE").Observe(time.Since(start).Seconds())
		return nil
	}

	err = s.Client.RemoveObject(ctx, s.BucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		metrics.S3OperationsTotal.WithLabelValues("DELETE", "error").Inc()
	} else {
		metrics.S3OperationsTotal.WithLabelValues("DELETE", "success").Inc()
	}
	metrics.S3OperationDuration.WithLabelValues("DELETE").Observe(time.Since(start).Seconds())
	return err
}

// MessageInfo describes one stored message in list results.
type MessageInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// ListMessages lists stored messages whose key starts with prefix.
func (s *S3Storage) ListMessages(ctx context.Context, prefix string) (<-chan MessageInfo, <-chan error) {
	infoCh := make(chan MessageInfo)
	errCh := make(chan error, 1)

	go func() {
		defer close(infoCh)
		defer close(errCh)

		opts := minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}

		for object := range s.Client.ListObjects(ctx, s.BucketName, opts) {
			if object.Err != nil {
				errCh <- object.Err
				return
			}

			infoCh <- MessageInfo{
				Key:          object.Key,
				Size:         object.Size,
				LastModified: object.LastModified,
				ETag:         object.ETag,
			}
		}
	}()

	return infoCh, errCh
}

// classifyS3Error classifies S3 errors for metrics tracking
func classifyS3Error(err error) string {
	if err == nil {
		return "none"
	}

	errStr := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case strings.Contains(errStr, "AccessDenied") || strings.Contains(errStr, "Forbidden"):
		return "access_denied"
	case strings.Contains(errStr, "NoSuchKey") || strings.Contains(errStr, "NotFound"):
		return "not_found"
	case strings.Contains(errStr, "SlowDown") || strings.Contains(errStr, "RequestLimitExceeded"):
		return "throttled"
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host"):
		return "network_error"
	default:
		return "unknown"
	}
}
