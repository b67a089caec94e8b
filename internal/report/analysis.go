package report

import (
	"sort"
	"strings"

	"github.com/huangsam/mailprune/internal/audit"
)

// Tier buckets a sender by open rate.
type Tier string

const (
	TierHigh   Tier = "high"   // open rate >= 80%
	TierMedium Tier = "medium" // 50% <= open rate < 80%
	TierLow    Tier = "low"    // 0% < open rate < 50%
	TierZero   Tier = "zero"   // open rate == 0%
)

// TierOf classifies a single open rate.
func TierOf(openRate float64) Tier {
	switch {
	case openRate >= 80:
		return TierHigh
	case openRate >= 50:
		return TierMedium
	case openRate > 0:
		return TierLow
	default:
		return TierZero
	}
}

// Overall summarizes the whole report across senders.
type Overall struct {
	Senders     int
	TotalEmails int
	TotalUnread int
	UnreadRate  float64
	AvgOpenRate float64
	NeverOpened int
	TopScore    float64
}

// Summarize computes the mailbox-wide rollup. AvgOpenRate is the unweighted
// mean across senders, matching how the report treats senders as the unit of
// attention.
func Summarize(aggregates []audit.SenderAggregate) Overall {
	var o Overall
	o.Senders = len(aggregates)

	var openRateSum float64
	for _, a := range aggregates {
		o.TotalEmails += a.TotalVolume
		o.TotalUnread += a.UnreadCount
		openRateSum += a.OpenRate
		if a.OpenRate == 0 {
			o.NeverOpened++
		}
		if a.IgnoranceScore > o.TopScore {
			o.TopScore = a.IgnoranceScore
		}
	}
	if o.TotalEmails > 0 {
		o.UnreadRate = float64(o.TotalUnread) / float64(o.TotalEmails) * 100
	}
	if o.Senders > 0 {
		o.AvgOpenRate = openRateSum / float64(o.Senders)
	}
	return o
}

// TopNoiseMakers returns the n highest-scoring senders. The input is copied
// and re-sorted so loaded reports need not arrive pre-sorted.
func TopNoiseMakers(aggregates []audit.SenderAggregate, n int) []audit.SenderAggregate {
	sorted := make([]audit.SenderAggregate, len(aggregates))
	copy(sorted, aggregates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].IgnoranceScore > sorted[j].IgnoranceScore
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// EngagementTiers splits senders into the four open-rate tiers, each tier
// keeping the report's score-descending order.
func EngagementTiers(aggregates []audit.SenderAggregate) map[Tier][]audit.SenderAggregate {
	sorted := TopNoiseMakers(aggregates, len(aggregates))
	tiers := make(map[Tier][]audit.SenderAggregate, 4)
	for _, a := range sorted {
		t := TierOf(a.OpenRate)
		tiers[t] = append(tiers[t], a)
	}
	return tiers
}

// FindSender returns all senders whose From field contains pattern,
// case-insensitively.
func FindSender(aggregates []audit.SenderAggregate, pattern string) []audit.SenderAggregate {
	needle := strings.ToLower(pattern)
	var matches []audit.SenderAggregate
	for _, a := range aggregates {
		if strings.Contains(strings.ToLower(a.From), needle) {
			matches = append(matches, a)
		}
	}
	return matches
}

// Cleanup holds the report's actionable recommendations.
type Cleanup struct {
	// Unsubscribe: never-opened senders, highest volume first.
	Unsubscribe []audit.SenderAggregate
	// Review: high-volume senders with under 50% open rate.
	Review []audit.SenderAggregate
	// Keep: the most engaged high-volume senders.
	Keep []audit.SenderAggregate
}

const reviewVolumeThreshold = 20

// Recommend derives cleanup suggestions from the report: the noisiest
// never-opened senders, high-volume low-engagement senders worth a filter,
// and the engaged senders worth keeping.
func Recommend(aggregates []audit.SenderAggregate) Cleanup {
	var c Cleanup

	byVolume := func(s []audit.SenderAggregate) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].TotalVolume > s[j].TotalVolume })
	}

	for _, a := range aggregates {
		switch {
		case a.OpenRate == 0:
			c.Unsubscribe = append(c.Unsubscribe, a)
		case a.OpenRate >= 80:
			c.Keep = append(c.Keep, a)
		}
		if a.TotalVolume >= reviewVolumeThreshold && a.OpenRate < 50 {
			c.Review = append(c.Review, a)
		}
	}

	byVolume(c.Unsubscribe)
	byVolume(c.Keep)
	sort.SliceStable(c.Review, func(i, j int) bool {
		return c.Review[i].IgnoranceScore > c.Review[j].IgnoranceScore
	})

	c.Unsubscribe = capLen(c.Unsubscribe, 5)
	c.Review = capLen(c.Review, 5)
	c.Keep = capLen(c.Keep, 3)
	return c
}

func capLen(s []audit.SenderAggregate, n int) []audit.SenderAggregate {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Category names for the unread breakdown, in display order.
var Categories = []string{"Updates", "Promotions", "Social", "Important"}

// CategoryBreakdown holds per-category unread attribution.
type CategoryBreakdown struct {
	Unread map[string]int
	Total  map[string]int
}

// UnreadByCategory attributes each sender's unread count to categories in
// proportion to how much of the sender's mail carries the category label.
// Attribution truncates toward zero per sender, so the per-category totals
// can undercount slightly; they are estimates, not exact label counts.
func UnreadByCategory(aggregates []audit.SenderAggregate) CategoryBreakdown {
	b := CategoryBreakdown{
		Unread: make(map[string]int, len(Categories)),
		Total:  make(map[string]int, len(Categories)),
	}
	for _, a := range aggregates {
		counts := map[string]int{
			"Updates":    a.UpdatesCount,
			"Promotions": a.PromotionsCount,
			"Social":     a.SocialCount,
			"Important":  a.ImportantCount,
		}
		for _, cat := range Categories {
			count := counts[cat]
			b.Total[cat] += count
			if count == 0 || a.TotalVolume == 0 {
				continue
			}
			b.Unread[cat] += a.UnreadCount * count / a.TotalVolume
		}
	}
	return b
}
