package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/mailprune/internal/cache"
	"github.com/huangsam/mailprune/internal/mail"
)

// fakeRemote serves canned pages and records. It is safe for use from one
// goroutine at a time, like the real clients; the pool provides exclusion.
type fakeRemote struct {
	mu       sync.Mutex
	pages    []mail.ListPage
	listErr  error
	failIDs  map[string]int // id -> remaining failures before success
	getCalls map[string]int
}

func newFakeRemote(pages ...mail.ListPage) *fakeRemote {
	return &fakeRemote{
		pages:    pages,
		failIDs:  make(map[string]int),
		getCalls: make(map[string]int),
	}
}

func (f *fakeRemote) List(_ context.Context, _, pageToken string, _ int64) (mail.ListPage, error) {
	if f.listErr != nil {
		return mail.ListPage{}, f.listErr
	}
	idx := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "page-%d", &idx)
	}
	if idx >= len(f.pages) {
		return mail.ListPage{}, nil
	}
	return f.pages[idx], nil
}

func (f *fakeRemote) GetMetadata(_ context.Context, id string) (*cache.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls[id]++
	if remaining := f.failIDs[id]; remaining > 0 {
		f.failIDs[id] = remaining - 1
		return nil, errors.New("transient error")
	}
	return &cache.Record{
		ID:      id,
		Headers: []cache.Header{{Name: "From", Value: "sender@example.com"}},
	}, nil
}

func (f *fakeRemote) Close() error { return nil }

func (f *fakeRemote) calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls[id]
}

func newFakePool(t *testing.T, remote *fakeRemote, size int) *mail.Pool {
	t.Helper()
	pool, err := mail.NewPool(size, func() (mail.Remote, error) { return remote, nil })
	require.NoError(t, err)
	return pool
}

func pageOf(token string, ids ...string) mail.ListPage {
	return mail.ListPage{IDs: ids, NextPageToken: token}
}

func TestListIDsSinglePage(t *testing.T) {
	remote := newFakeRemote(pageOf("", "a", "b", "c"))
	fetcher := NewFetcher(newFakePool(t, remote, 1), 0, 3)

	ids, err := fetcher.ListIDs(context.Background(), 100, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestListIDsPaginates(t *testing.T) {
	remote := newFakeRemote(
		pageOf("page-1", "a", "b"),
		pageOf("page-2", "c", "d"),
		pageOf("", "e"),
	)
	fetcher := NewFetcher(newFakePool(t, remote, 1), 0, 3)

	ids, err := fetcher.ListIDs(context.Background(), 100, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}

func TestListIDsStopsAtMax(t *testing.T) {
	remote := newFakeRemote(
		pageOf("page-1", "a", "b"),
		pageOf("page-2", "c", "d"),
	)
	fetcher := NewFetcher(newFakePool(t, remote, 1), 0, 3)

	ids, err := fetcher.ListIDs(context.Background(), 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestListIDsError(t *testing.T) {
	remote := newFakeRemote()
	remote.listErr = errors.New("boom")
	fetcher := NewFetcher(newFakePool(t, remote, 1), 0, 3)

	_, err := fetcher.ListIDs(context.Background(), 10, "")
	assert.Error(t, err)
}

func TestFetchMissingSkipsCached(t *testing.T) {
	remote := newFakeRemote()
	fetcher := NewFetcher(newFakePool(t, remote, 3), 0, 3)

	records := map[string]*cache.Record{
		"a": {ID: "a"},
		"b": {ID: "b"},
		"c": {ID: "c"},
	}
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}

	fetched := fetcher.FetchMissing(context.Background(), records, ids)
	assert.Equal(t, 7, fetched)
	assert.Len(t, records, 10)

	// Cached ids were never refetched.
	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, 0, remote.calls(id))
	}
	for _, id := range []string{"d", "e", "f", "g", "h", "i", "j"} {
		assert.Equal(t, 1, remote.calls(id))
	}
}

func TestFetchMissingRetriesTransientFailures(t *testing.T) {
	remote := newFakeRemote()
	remote.failIDs["a"] = 2 // succeeds on third attempt
	fetcher := NewFetcher(newFakePool(t, remote, 1), 0, 3)

	records := map[string]*cache.Record{}
	fetched := fetcher.FetchMissing(context.Background(), records, []string{"a"})

	assert.Equal(t, 1, fetched)
	assert.Equal(t, 3, remote.calls("a"))
	assert.Contains(t, records, "a")
}

func TestFetchMissingIsolatesPermanentFailures(t *testing.T) {
	remote := newFakeRemote()
	remote.failIDs["bad"] = 100
	fetcher := NewFetcher(newFakePool(t, remote, 2), 0, 3)

	records := map[string]*cache.Record{}
	fetched := fetcher.FetchMissing(context.Background(), records, []string{"bad", "good"})

	assert.Equal(t, 1, fetched)
	assert.Equal(t, 3, remote.calls("bad"))
	assert.NotContains(t, records, "bad")
	assert.Contains(t, records, "good")
}

// countingRemote tracks in-flight GetMetadata calls to observe fan-out.
type countingRemote struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (c *countingRemote) List(context.Context, string, string, int64) (mail.ListPage, error) {
	return mail.ListPage{}, nil
}

func (c *countingRemote) GetMetadata(_ context.Context, id string) (*cache.Record, error) {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.peak {
		c.peak = c.inFlight
	}
	c.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
	return &cache.Record{ID: id}, nil
}

func (c *countingRemote) Close() error { return nil }

func TestNewFetcherWorkerCount(t *testing.T) {
	remote := newFakeRemote()
	pool := newFakePool(t, remote, 5)

	assert.Equal(t, 2, NewFetcher(pool, 2, 3).Workers)
	assert.Equal(t, 20, NewFetcher(pool, 20, 3).Workers)

	// Non-positive falls back to the pool size.
	assert.Equal(t, 5, NewFetcher(pool, 0, 3).Workers)
	assert.Equal(t, 5, NewFetcher(pool, -1, 3).Workers)
}

func TestFetchMissingHonorsWorkerCount(t *testing.T) {
	remote := &countingRemote{}
	pool, err := mail.NewPool(4, func() (mail.Remote, error) { return remote, nil })
	require.NoError(t, err)
	defer pool.Close()

	fetcher := NewFetcher(pool, 2, 3)

	records := map[string]*cache.Record{}
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	fetched := fetcher.FetchMissing(context.Background(), records, ids)

	assert.Equal(t, len(ids), fetched)
	// The pool has 4 handles, but only the configured 2 workers may fetch
	// concurrently.
	assert.LessOrEqual(t, remote.peak, 2)
}

func TestFetchMissingNothingToDo(t *testing.T) {
	remote := newFakeRemote()
	fetcher := NewFetcher(newFakePool(t, remote, 1), 0, 3)

	records := map[string]*cache.Record{"a": {ID: "a"}}
	assert.Equal(t, 0, fetcher.FetchMissing(context.Background(), records, []string{"a"}))
}
