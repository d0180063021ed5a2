package service

import (
	"context"
	"errors"
	"fmt"
	"genarchive/internal/entity"
	"genarchive/internal/storage"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Destination 产物在持久存储中的位置，扩展名在下载后确定
type Destination struct {
	Category string
	BaseName string
}

// Locator is the durable address of a relocated artifact.
type Locator struct {
	Key string
	URL string
}

// Batch identifies one relocate-all call.
type Batch struct {
	Kind      GenerationKind
	HistoryID string
	// CreatedAt 决定目标键与产物 ID 中的时间戳
	CreatedAt time.Time
}

// Relocator 将后端临时地址上的产物搬运到持久存储
type Relocator struct {
	fetcher      Fetcher
	store        storage.Storage
	fetchTimeout time.Duration
	storeTimeout time.Duration
}

// NewRelocator 创建 Relocator，超时为 0 表示不单独限制
func NewRelocator(fetcher Fetcher, store storage.Storage, fetchTimeout, storeTimeout time.Duration) *Relocator {
	if fetcher == nil {
		fetcher = NewHTTPFetcher(nil)
	}
	return &Relocator{
		fetcher:      fetcher,
		store:        store,
		fetchTimeout: fetchTimeout,
		storeTimeout: storeTimeout,
	}
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Relocate fetches sourceURL and writes it under dest. noun names the artifact
// in error messages.
func (r *Relocator) Relocate(ctx context.Context, sourceURL string, dest Destination, noun string) (Locator, error) {
	if strings.TrimSpace(noun) == "" {
		noun = "artifact"
	}

	fetchCtx, cancelFetch := withOptionalTimeout(ctx, r.fetchTimeout)
	artifact, err := r.fetcher.Fetch(fetchCtx, sourceURL)
	cancelFetch()
	if err != nil {
		var statusErr *FetchStatusError
		if errors.As(err, &statusErr) {
			return Locator{}, newError(KindFetch, fmt.Sprintf("Failed to download %s: %s", noun, statusErr.Status), err)
		}
		return Locator{}, newError(KindFetch, fmt.Sprintf("Failed to download %s: %v", noun, err), err)
	}

	if r.store == nil {
		return Locator{}, newError(KindStore, "storage is not configured", nil)
	}

	storeCtx, cancelStore := withOptionalTimeout(ctx, r.storeTimeout)
	defer cancelStore()
	key, err := r.store.Save(storeCtx, artifact.Data, storage.SaveOptions{
		Category:  dest.Category,
		BaseName:  dest.BaseName,
		Extension: artifact.Extension,
	})
	if err != nil {
		return Locator{}, newError(KindStore, fmt.Sprintf("Failed to store %s: %v", noun, err), err)
	}

	return Locator{Key: key, URL: r.store.PublicURL(key)}, nil
}

// RelocateAll relocates every source concurrently. Results keep the order of
// sources; any single failure fails the batch and no partial list is returned.
func (r *Relocator) RelocateAll(ctx context.Context, batch Batch, sources []string) ([]entity.ArtifactRef, error) {
	results := make([]entity.ArtifactRef, len(sources))
	millis := batch.CreatedAt.UnixMilli()
	short := historyShortID(batch.HistoryID)

	var g errgroup.Group
	for i, source := range sources {
		g.Go(func() error {
			dest := Destination{
				Category: batch.Kind.Folder,
				BaseName: fmt.Sprintf("%s_%d_%s_%d", batch.Kind.FilePrefix, millis, short, i),
			}
			logger := logrus.WithFields(logrus.Fields{
				"history_id": batch.HistoryID,
				"index":      i,
				"source_url": source,
			})

			locator, err := r.Relocate(ctx, source, dest, batch.Kind.Noun)
			if err != nil {
				logger.WithError(err).Error("artifact relocation failed")
				return err
			}
			logger.WithField("key", locator.Key).Debug("artifact relocated")

			results[i] = entity.ArtifactRef{
				ID:          fmt.Sprintf("%s-%d-%d", batch.Kind.IDPrefix, millis, i),
				URL:         locator.URL,
				OriginalURL: source,
				FirebaseURL: locator.URL,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func historyShortID(id string) string {
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	if short == "" {
		short = "anon"
	}
	return short
}
