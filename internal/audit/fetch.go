package audit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/huangsam/mailprune/internal/cache"
	"github.com/huangsam/mailprune/internal/mail"
)

const (
	maxPageSize      = 500
	retryBackoffBase = 100 * time.Millisecond
	retryJitterMax   = 50 * time.Millisecond
)

// Fetcher lists message ids and fetches uncached metadata from the remote
// mailbox through a bounded pool of client handles.
type Fetcher struct {
	Pool       *mail.Pool
	Workers    int
	MaxRetries int
}

// NewFetcher returns a Fetcher running workers goroutines over the pool.
// A non-positive worker count falls back to the pool size.
func NewFetcher(pool *mail.Pool, workers, maxRetries int) *Fetcher {
	if workers <= 0 {
		workers = pool.Size()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Fetcher{
		Pool:       pool,
		Workers:    workers,
		MaxRetries: maxRetries,
	}
}

// ListIDs pages through the remote listing until maxCount ids are collected
// or the service reports no further pages. Listing is strictly sequential
// because each page token depends on the prior response.
func (f *Fetcher) ListIDs(ctx context.Context, maxCount int, query string) ([]string, error) {
	var (
		ids       []string
		pageToken string
	)

	for len(ids) < maxCount {
		pageSize := int64(maxCount - len(ids))
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		handle := f.Pool.Get()
		page, err := handle.List(ctx, query, pageToken, pageSize)
		f.Pool.Put(handle)
		if err != nil {
			return nil, err
		}

		ids = append(ids, page.IDs...)
		logrus.Debugf("Fetched batch of %d message ids (total: %d)", len(page.IDs), len(ids))

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	logrus.Infof("Fetched %d message ids", len(ids))
	return ids, nil
}

// FetchMissing retrieves metadata for every id not already in records and
// inserts it under that id. Individual failures are retried with exponential
// backoff plus jitter and then abandoned with a warning; one id's permanent
// failure never aborts the batch. Returns the number successfully fetched.
func (f *Fetcher) FetchMissing(ctx context.Context, records map[string]*cache.Record, ids []string) int {
	var missing []string
	for _, id := range ids {
		if _, ok := records[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return 0
	}

	logrus.Infof("Fetching %d uncached messages in parallel...", len(missing))

	workers := f.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(missing) {
		workers = len(missing)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		fetched int
	)
	work := make(chan string)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				record := f.fetchOne(ctx, id)
				if record == nil {
					continue
				}
				mu.Lock()
				records[id] = record
				fetched++
				mu.Unlock()
				logrus.Debugf("Fetched and cached message %s", id)
			}
		}()
	}

	for _, id := range missing {
		work <- id
	}
	close(work)
	wg.Wait()

	return fetched
}

// fetchOne retrieves one message with bounded retry, returning nil when every
// attempt failed.
func (f *Fetcher) fetchOne(ctx context.Context, id string) *cache.Record {
	handle := f.Pool.Get()
	defer f.Pool.Put(handle)

	for attempt := 0; attempt < f.MaxRetries; attempt++ {
		record, err := handle.GetMetadata(ctx, id)
		if err == nil {
			return record
		}
		if attempt == f.MaxRetries-1 {
			logrus.Warnf("Failed to fetch message %s after %d attempts: %v", id, f.MaxRetries, err)
			return nil
		}
		logrus.Debugf("Retry %d for message %s: %v", attempt+1, id, err)

		backoff := retryBackoffBase<<uint(attempt) + time.Duration(rand.Int63n(int64(retryJitterMax)))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			logrus.Warnf("Fetch of message %s canceled: %v", id, ctx.Err())
			return nil
		}
	}
	return nil
}
