// Package s3logger ships the service's JSON log stream to S3 as gzip objects.
package s3logger

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/boogy/drinks-warden/pkg/config"
	"github.com/google/uuid"
)

const (
	// DefaultTimeout is the default timeout for S3 operations
	DefaultTimeout = 10 * time.Second

	// DefaultRetries is the default number of retries for S3 operations
	DefaultRetries = 3

	// DefaultFlushThreshold is the buffered size that triggers an early flush
	DefaultFlushThreshold = 1 << 20

	// maxBufferSize caps memory use while S3 is unreachable; older lines are dropped
	maxBufferSize = 8 << 20
)

// PutObjectAPI is the subset of the S3 client used by the logger
type PutObjectAPI interface {
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Logger buffers log lines written to it and uploads them on Flush. A
// logger built with logging disabled discards everything.
type S3Logger struct {
	client         PutObjectAPI
	bucket         string
	prefix         string
	enabled        bool
	flushThreshold int
	timeNow        func() time.Time

	mu      sync.Mutex
	buf     bytes.Buffer
	dropped int
	full    chan struct{}
}

type Option func(*S3Logger)

// WithClient sets the S3 client, skipping AWS config loading.
func WithClient(c PutObjectAPI) Option {
	return func(l *S3Logger) { l.client = c }
}

func WithClock(now func() time.Time) Option {
	return func(l *S3Logger) { l.timeNow = now }
}

func WithFlushThreshold(n int) Option {
	return func(l *S3Logger) {
		if n > 0 {
			l.flushThreshold = n
		}
	}
}

// New creates a logger from the log_to_s3, log_bucket and log_prefix settings.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*S3Logger, error) {
	l := &S3Logger{
		bucket:         cfg.LogBucket,
		prefix:         strings.Trim(cfg.LogPrefix, "/"),
		enabled:        cfg.LogToS3 && cfg.LogBucket != "",
		flushThreshold: DefaultFlushThreshold,
		timeNow:        time.Now,
		full:           make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.enabled && l.client == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRetryMaxAttempts(DefaultRetries))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config for S3 logger: %w", err)
		}
		l.client = s3.NewFromConfig(awsCfg)
	}

	return l, nil
}

func (l *S3Logger) Enabled() bool { return l.enabled }

// Write implements io.Writer so the logger can sit behind a slog handler.
func (l *S3Logger) Write(p []byte) (int, error) {
	if !l.enabled {
		return len(p), nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.buf.Len()+len(p) > maxBufferSize {
		l.dropped++
		return len(p), nil
	}
	l.buf.Write(p)

	if l.buf.Len() >= l.flushThreshold {
		select {
		case l.full <- struct{}{}:
		default:
		}
	}
	return len(p), nil
}

// Flush uploads everything buffered so far as one object. The buffer is kept
// when the upload fails.
func (l *S3Logger) Flush(ctx context.Context) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	if l.buf.Len() == 0 {
		l.mu.Unlock()
		return nil
	}
	data := bytes.Clone(l.buf.Bytes())
	dropped := l.dropped
	l.buf.Reset()
	l.dropped = 0
	l.mu.Unlock()

	if err := l.upload(ctx, data, dropped); err != nil {
		l.mu.Lock()
		// Put the lines back in front of anything written meanwhile
		rest := bytes.Clone(l.buf.Bytes())
		l.buf.Reset()
		l.buf.Write(data)
		l.buf.Write(rest)
		l.dropped += dropped
		l.mu.Unlock()
		return err
	}
	return nil
}

// Run flushes every interval, or earlier when the buffer fills, until ctx is
// done. A final flush runs on the way out.
func (l *S3Logger) Run(ctx context.Context, interval time.Duration) {
	if !l.enabled {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTimeout)
			if err := l.Flush(flushCtx); err != nil {
				fmt.Fprintf(os.Stderr, "s3logger: final flush failed: %v\n", err)
			}
			cancel()
			return
		case <-ticker.C:
		case <-l.full:
		}
		if err := l.Flush(ctx); err != nil {
			// Logging through slog here would feed the failure back into the buffer
			fmt.Fprintf(os.Stderr, "s3logger: flush failed: %v\n", err)
		}
	}
}

func (l *S3Logger) upload(ctx context.Context, data []byte, dropped int) error {
	compressed, err := compressGzip(data)
	if err != nil {
		return fmt.Errorf("failed to compress log data: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	key := l.objectKey()
	_, err = l.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(l.bucket),
		Key:               aws.String(key),
		Body:              bytes.NewReader(compressed),
		ContentType:       aws.String("application/json"),
		ContentEncoding:   aws.String("gzip"),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
		Metadata: map[string]string{
			"source":        "drinks-warden",
			"created-at":    l.timeNow().UTC().Format(time.RFC3339),
			"dropped-lines": fmt.Sprintf("%d", dropped),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write logs to S3 (bucket=%s key=%s): %w", l.bucket, key, err)
	}

	slog.Debug("Wrote logs to S3", "bucket", l.bucket, "key", key, "bytes", len(compressed))
	return nil
}

// objectKey returns prefix/YYYY/MM/DD/<uuid>-YYYYMMDD-HHMMSS.json.gz
func (l *S3Logger) objectKey() string {
	now := l.timeNow().UTC()
	name := fmt.Sprintf("%s-%s.json.gz", uuid.New().String(), now.Format("20060102-150405"))
	parts := []string{now.Format("2006/01/02"), name}
	if l.prefix != "" {
		parts = append([]string{l.prefix}, parts...)
	}
	return strings.Join(parts, "/")
}

// compressGzip compresses the given data using gzip
func compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)

	if _, err := gzWriter.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write to gzip writer: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}
