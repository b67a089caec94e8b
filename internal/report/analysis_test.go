package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/mailprune/internal/audit"
)

func sender(from string, volume, unread int, openRate, score float64) audit.SenderAggregate {
	return audit.SenderAggregate{
		From:           from,
		TotalVolume:    volume,
		UnreadCount:    unread,
		OpenRate:       openRate,
		IgnoranceScore: score,
	}
}

func TestTierOf(t *testing.T) {
	assert.Equal(t, TierHigh, TierOf(100))
	assert.Equal(t, TierHigh, TierOf(80))
	assert.Equal(t, TierMedium, TierOf(79.9))
	assert.Equal(t, TierMedium, TierOf(50))
	assert.Equal(t, TierLow, TierOf(49.9))
	assert.Equal(t, TierLow, TierOf(0.1))
	assert.Equal(t, TierZero, TierOf(0))
}

func TestSummarize(t *testing.T) {
	aggregates := []audit.SenderAggregate{
		sender("a@x.com", 10, 8, 20, 800),
		sender("b@x.com", 10, 0, 100, 0),
		sender("c@x.com", 5, 5, 0, 500),
	}

	o := Summarize(aggregates)
	assert.Equal(t, 3, o.Senders)
	assert.Equal(t, 25, o.TotalEmails)
	assert.Equal(t, 13, o.TotalUnread)
	assert.InDelta(t, 52.0, o.UnreadRate, 0.001)
	assert.InDelta(t, 40.0, o.AvgOpenRate, 0.001)
	assert.Equal(t, 1, o.NeverOpened)
	assert.Equal(t, 800.0, o.TopScore)
}

func TestSummarizeEmpty(t *testing.T) {
	o := Summarize(nil)
	assert.Zero(t, o.Senders)
	assert.Zero(t, o.UnreadRate)
	assert.Zero(t, o.AvgOpenRate)
}

func TestTopNoiseMakers(t *testing.T) {
	aggregates := []audit.SenderAggregate{
		sender("low@x.com", 1, 0, 100, 0),
		sender("high@x.com", 10, 10, 0, 1000),
		sender("mid@x.com", 5, 3, 40, 300),
	}

	top := TopNoiseMakers(aggregates, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "high@x.com", top[0].From)
	assert.Equal(t, "mid@x.com", top[1].From)

	// Asking for more than exists returns everything.
	assert.Len(t, TopNoiseMakers(aggregates, 99), 3)

	// The input order is untouched.
	assert.Equal(t, "low@x.com", aggregates[0].From)
}

func TestEngagementTiers(t *testing.T) {
	aggregates := []audit.SenderAggregate{
		sender("a@x.com", 1, 0, 95, 5),
		sender("b@x.com", 1, 0, 60, 40),
		sender("c@x.com", 1, 1, 10, 90),
		sender("d@x.com", 1, 1, 0, 100),
		sender("e@x.com", 1, 0, 85, 15),
	}

	tiers := EngagementTiers(aggregates)
	assert.Len(t, tiers[TierHigh], 2)
	assert.Len(t, tiers[TierMedium], 1)
	assert.Len(t, tiers[TierLow], 1)
	assert.Len(t, tiers[TierZero], 1)

	// Each tier is ordered by descending score.
	high := tiers[TierHigh]
	assert.Equal(t, "e@x.com", high[0].From)
	assert.Equal(t, "a@x.com", high[1].From)
}

func TestFindSender(t *testing.T) {
	aggregates := []audit.SenderAggregate{
		sender("Newsletter <news@shop.com>", 1, 0, 50, 50),
		sender("alice@example.com", 1, 0, 50, 50),
	}

	assert.Len(t, FindSender(aggregates, "NEWS"), 1)
	assert.Len(t, FindSender(aggregates, "example"), 1)
	assert.Len(t, FindSender(aggregates, "@"), 2)
	assert.Empty(t, FindSender(aggregates, "bob"))
}

func TestUnreadByCategory(t *testing.T) {
	aggregates := []audit.SenderAggregate{
		{
			From:            "mixed@x.com",
			TotalVolume:     10,
			UnreadCount:     5,
			UpdatesCount:    10,
			PromotionsCount: 4,
		},
		{
			From:        "plain@x.com",
			TotalVolume: 3,
			UnreadCount: 3,
		},
	}

	b := UnreadByCategory(aggregates)

	// Updates: 5 unread * 10/10 = 5. Promotions: 5 * 4/10 = 2.
	assert.Equal(t, 5, b.Unread["Updates"])
	assert.Equal(t, 2, b.Unread["Promotions"])
	assert.Equal(t, 0, b.Unread["Social"])
	assert.Equal(t, 10, b.Total["Updates"])
	assert.Equal(t, 4, b.Total["Promotions"])
}

func TestRecommend(t *testing.T) {
	aggregates := []audit.SenderAggregate{
		sender("never1@x.com", 40, 40, 0, 4000),
		sender("never2@x.com", 10, 10, 0, 1000),
		sender("review@x.com", 25, 15, 40, 1500),
		sender("small@x.com", 2, 1, 30, 140), // below review volume threshold
		sender("loved@x.com", 20, 1, 95, 100),
	}

	c := Recommend(aggregates)

	require.Len(t, c.Unsubscribe, 2)
	assert.Equal(t, "never1@x.com", c.Unsubscribe[0].From)

	// Zero-open senders qualify for review too when the volume is there.
	require.NotEmpty(t, c.Review)
	assert.Equal(t, "never1@x.com", c.Review[0].From)
	for _, a := range c.Review {
		assert.GreaterOrEqual(t, a.TotalVolume, 20)
		assert.Less(t, a.OpenRate, 50.0)
	}

	require.Len(t, c.Keep, 1)
	assert.Equal(t, "loved@x.com", c.Keep[0].From)
}

func TestRenderReportSections(t *testing.T) {
	out := RenderReport([]audit.SenderAggregate{
		sender("noisy@x.com", 30, 27, 10, 2700),
		sender("quiet@x.com", 5, 0, 100, 0),
	}, 10)

	assert.Contains(t, out, "CURRENT STATUS")
	assert.Contains(t, out, "EMAIL DISTRIBUTION")
	assert.Contains(t, out, "ENGAGEMENT BREAKDOWN")
	assert.Contains(t, out, "CLEANUP RECOMMENDATIONS")
	assert.Contains(t, out, "noisy@x.com")
}

func TestRenderEngagementTierFilter(t *testing.T) {
	aggregates := []audit.SenderAggregate{
		sender("high@x.com", 1, 0, 90, 10),
		sender("zero@x.com", 1, 1, 0, 100),
	}

	all := RenderEngagement(aggregates, "")
	assert.Contains(t, all, "high@x.com")
	assert.Contains(t, all, "zero@x.com")

	onlyZero := RenderEngagement(aggregates, TierZero)
	assert.NotContains(t, onlyZero, "high@x.com")
	assert.Contains(t, onlyZero, "zero@x.com")
}

func TestRenderTopIncludesSenders(t *testing.T) {
	out := RenderTop([]audit.SenderAggregate{
		sender("noisy@x.com", 30, 27, 10, 2700),
	}, 10)

	assert.Contains(t, out, "noisy@x.com")
	assert.Contains(t, out, "2700")
}

func TestRenderSenderNoMatch(t *testing.T) {
	out := RenderSender(nil, "ghost")
	assert.Contains(t, out, "No senders matching")
}
