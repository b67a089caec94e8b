package audit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/huangsam/mailprune/internal/cache"
	"github.com/huangsam/mailprune/internal/metrics"
)

// ReportStore persists the aggregate table.
type ReportStore interface {
	Save(aggregates []SenderAggregate) error
}

// RunRecorder receives the outcome of each audit run, successful or not.
type RunRecorder interface {
	Record(result *Result, runErr error)
}

// Service wires the audit pipeline: load cache, list ids, fetch missing
// metadata, project, prune, persist, aggregate, report.
type Service struct {
	Fetcher *Fetcher
	Cache   *cache.Store
	Reports ReportStore

	// Metrics and Recorder are optional; the CLI runs without either.
	Metrics  *metrics.Metrics
	Recorder RunRecorder

	Clock func() time.Time
}

// NewService constructs a Service with the wall clock.
func NewService(fetcher *Fetcher, store *cache.Store, reports ReportStore) *Service {
	return &Service{
		Fetcher: fetcher,
		Cache:   store,
		Reports: reports,
		Clock:   time.Now,
	}
}

// Run performs one complete audit of up to maxEmails messages matching
// query. A failure to list ids is fatal for the run; every later stage
// degrades per item. The cache and report files are rewritten on the way
// out, but a failed write only costs persistence, not the returned result.
func (s *Service) Run(ctx context.Context, maxEmails int, query string) (*Result, error) {
	start := s.Clock()
	if s.Metrics != nil {
		s.Metrics.AuditRuns.Inc()
	}

	records := s.Cache.Load()
	logrus.Infof("Loaded %d messages from cache", len(records))
	logrus.Infof("Starting audit of the last %d messages...", maxEmails)

	ids, err := s.Fetcher.ListIDs(ctx, maxEmails, query)
	if err != nil {
		s.record(nil, err)
		return nil, err
	}
	listTime := s.Clock()
	logrus.Infof("Fetched %d message ids in %.2fs", len(ids), listTime.Sub(start).Seconds())

	missing := 0
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
		if _, ok := records[id]; !ok {
			missing++
		}
	}

	fetched := s.Fetcher.FetchMissing(ctx, records, ids)
	cacheHits := len(ids) - missing
	logrus.Infof("Processed cache: %d cached, %d fetched", cacheHits, fetched)

	rows := Project(records, ids, s.Clock().UTC())
	processTime := s.Clock()
	logrus.Infof("Processed %d messages (%d fetched from API, %d from cache) in %.2fs",
		len(rows), fetched, cacheHits, processTime.Sub(listTime).Seconds())

	pruned := cache.Prune(records, keep)

	if err := s.Cache.Save(records); err != nil {
		logrus.Errorf("Failed to save cache: %v", err)
	}

	aggregates := Aggregate(rows)

	if err := s.Reports.Save(aggregates); err != nil {
		logrus.Errorf("Failed to save report: %v", err)
	}

	result := &Result{
		Aggregates: aggregates,
		StartedAt:  start,
		Duration:   s.Clock().Sub(start),
		Listed:     len(ids),
		CacheHits:  cacheHits,
		Fetched:    fetched,
		Pruned:     pruned,
	}

	if s.Metrics != nil {
		s.Metrics.CacheHits.Add(float64(cacheHits))
		s.Metrics.FetchSuccesses.Add(float64(fetched))
		s.Metrics.FetchFailures.Add(float64(missing - fetched))
		s.Metrics.PrunedMessages.Add(float64(pruned))
		s.Metrics.AuditDuration.Observe(result.Duration.Seconds())
		s.Metrics.TrackedSenders.Set(float64(len(aggregates)))
	}
	s.record(result, nil)

	logrus.Infof("Audit complete! Total time: %.2fs", result.Duration.Seconds())
	return result, nil
}

func (s *Service) record(result *Result, runErr error) {
	if s.Recorder == nil {
		return
	}
	s.Recorder.Record(result, runErr)
}
