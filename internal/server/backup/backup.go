// Package backup periodically uploads a JSON snapshot of all notes to
// an S3-compatible bucket.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/server/config"
	"github.com/avoronova/notekeeper/internal/server/repositories"
)

// Uploader is the subset of the S3 client the runner needs.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Runner takes snapshots from the repository manager on a fixed
// interval and uploads them. A Runner with an empty bucket is inert.
type Runner struct {
	mgr      repositories.Manager
	uploader Uploader
	log      logging.Logger
	bucket   string
	interval time.Duration
	now      func() time.Time
}

// NewRunner builds a Runner from the server configuration. Credentials
// come from the environment via the default AWS credential chain.
func NewRunner(ctx context.Context, cfg *config.Config, mgr repositories.Manager, log logging.Logger) (*Runner, error) {
	if cfg.BackupBucket == "" {
		return &Runner{log: log}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.BackupS3Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BackupS3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BackupS3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Runner{
		mgr:      mgr,
		uploader: client,
		log:      log,
		bucket:   cfg.BackupBucket,
		interval: cfg.BackupInterval,
		now:      time.Now,
	}, nil
}

// Enabled reports whether the runner will actually upload anything.
func (r *Runner) Enabled() bool { return r.bucket != "" }

// Run uploads a snapshot every interval until ctx is cancelled. Upload
// failures are logged and retried on the next tick.
func (r *Runner) Run(ctx context.Context) {
	if !r.Enabled() {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.UploadOnce(ctx); err != nil {
				r.log.Error(ctx, "backup upload failed", "error", err)
			}
		}
	}
}

// UploadOnce serializes the current note set and stores it under a
// timestamped key.
func (r *Runner) UploadOnce(ctx context.Context) error {
	data, err := r.mgr.SnapshotJSON(ctx)
	if err != nil {
		return fmt.Errorf("building snapshot: %w", err)
	}

	key := r.snapshotKey()
	_, err = r.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot %s: %w", key, err)
	}

	r.log.Info(ctx, "backup uploaded", "key", key, "bytes", len(data))
	return nil
}

func (r *Runner) snapshotKey() string {
	d := r.now().UTC()
	return fmt.Sprintf("snapshots/%d/%02d/notes-%s.json", d.Year(), d.Month(), d.Format("20060102-150405"))
}
