package content

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"advisoryhub/internal/storage"
)

// SweepReport counts what one sweep did, per bucket.
type SweepReport struct {
	Scanned map[string]int
	Removed map[string]int
	Failed  map[string]int
}

// Sweeper removes blobs no content row points at. Objects younger than the
// grace period are kept: they may belong to a submission whose row has not
// been written yet.
type Sweeper struct {
	repo  Repository
	blobs storage.BlobStore
	grace time.Duration
	log   *zap.Logger
	now   func() time.Time
}

func NewSweeper(repo Repository, blobs storage.BlobStore, grace time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{repo: repo, blobs: blobs, grace: grace, log: log, now: time.Now}
}

var sweptBuckets = []string{storage.ContentBucket, storage.ThumbnailBucket}

func (sw *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	report := SweepReport{
		Scanned: make(map[string]int),
		Removed: make(map[string]int),
		Failed:  make(map[string]int),
	}

	listed := make([][]storage.Object, len(sweptBuckets))
	g, gctx := errgroup.WithContext(ctx)
	for i, bucket := range sweptBuckets {
		i, bucket := i, bucket
		g.Go(func() error {
			objs, err := sw.blobs.List(gctx, bucket, "")
			if err != nil {
				return fmt.Errorf("list %s: %w", bucket, err)
			}
			listed[i] = objs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	rows, err := sw.repo.ReferencedURLs(ctx)
	if err != nil {
		return report, fmt.Errorf("load referenced urls: %w", err)
	}
	referenced := map[string]map[string]bool{
		storage.ContentBucket:   {},
		storage.ThumbnailBucket: {},
	}
	for _, row := range rows {
		if row.SourceKind == SourceUploadedFile {
			if key, ok := sw.blobs.KeyFromURL(storage.ContentBucket, row.ContentURL); ok {
				referenced[storage.ContentBucket][key] = true
			}
		}
		if key, ok := sw.blobs.KeyFromURL(storage.ThumbnailBucket, row.ThumbnailURL); ok {
			referenced[storage.ThumbnailBucket][key] = true
		}
	}

	cutoff := sw.now().Add(-sw.grace)
	for i, bucket := range sweptBuckets {
		report.Scanned[bucket] = len(listed[i])
		for _, obj := range listed[i] {
			if referenced[bucket][obj.Name] || obj.UpdatedAt.After(cutoff) {
				continue
			}
			if err := sw.blobs.Remove(ctx, bucket, []string{obj.Name}); err != nil {
				report.Failed[bucket]++
				sw.log.Warn("orphan removal failed", zap.String("bucket", bucket), zap.String("key", obj.Name), zap.Error(err))
				continue
			}
			report.Removed[bucket]++
			sw.log.Info("orphan removed", zap.String("bucket", bucket), zap.String("key", obj.Name))
		}
	}
	return report, nil
}

// Schedule runs Sweep every interval until ctx is done.
func (sw *Sweeper) Schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sw.log.Info("orphan sweep scheduled", zap.Duration("interval", interval))
	for {
		select {
		case <-ticker.C:
			report, err := sw.Sweep(ctx)
			if err != nil {
				sw.log.Warn("orphan sweep failed", zap.Error(err))
				continue
			}
			sw.log.Info("orphan sweep completed",
				zap.Any("removed", report.Removed), zap.Any("failed", report.Failed))
		case <-ctx.Done():
			sw.log.Info("orphan sweep stopped")
			return
		}
	}
}
