// Package audit implements the mailbox audit pipeline: list message ids,
// fetch uncached metadata, project records into flat rows, and aggregate
// per-sender noise statistics.
package audit

import "time"

// ProjectedEmail is the flat per-message row extracted from a cached record.
// It is recomputed on every run and never persisted.
type ProjectedEmail struct {
	ID      string
	From    string
	Subject string
	Date    string

	// AgeDays is nil when the Date header was absent or unparseable. Rows
	// with a nil age are excluded from aggregation.
	AgeDays *float64

	Unread     bool
	Starred    bool
	Important  bool
	Social     bool
	Updates    bool
	Promotions bool
}

// SenderAggregate is one row of the noise report: per-sender volume, label
// counts, and the derived engagement scores. OpenRate and IgnoranceScore are
// always recomputed from the counts, never set independently.
type SenderAggregate struct {
	From            string  `json:"from"`
	TotalVolume     int     `json:"total_volume"`
	UnreadCount     int     `json:"unread_count"`
	StarredCount    int     `json:"starred_count"`
	ImportantCount  int     `json:"important_count"`
	SocialCount     int     `json:"social_count"`
	UpdatesCount    int     `json:"updates_count"`
	PromotionsCount int     `json:"promotions_count"`
	AvgRecencyDays  float64 `json:"avg_recency_days"`
	OpenRate        float64 `json:"open_rate"`
	IgnoranceScore  float64 `json:"ignorance_score"`
}

// Result summarizes one audit run.
type Result struct {
	Aggregates []SenderAggregate
	StartedAt  time.Time
	Duration   time.Duration
	Listed     int
	CacheHits  int
	Fetched    int
	Pruned     int
}
