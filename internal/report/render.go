package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/huangsam/mailprune/internal/audit"
)

// truncate shortens a From header for table display.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// RenderTop renders the n noisiest senders as a fixed-width table.
func RenderTop(aggregates []audit.SenderAggregate, n int) string {
	top := TopNoiseMakers(aggregates, n)

	b := &strings.Builder{}
	fmt.Fprintf(b, "Top %d noise makers\n\n", len(top))
	fmt.Fprintf(b, "%-4s %-50s %8s %8s %10s %10s\n",
		"#", "Sender", "Volume", "Unread", "Open Rate", "Score")
	b.WriteString(strings.Repeat("-", 94) + "\n")
	for i, a := range top {
		fmt.Fprintf(b, "%-4d %-50s %8d %8d %9.1f%% %10.0f\n",
			i+1, truncate(a.From, 50), a.TotalVolume, a.UnreadCount, a.OpenRate, a.IgnoranceScore)
	}
	return b.String()
}

// RenderReport renders the comprehensive audit report: current status,
// distribution, engagement breakdown, categories, the top noise makers, and
// cleanup recommendations.
func RenderReport(aggregates []audit.SenderAggregate, topN int) string {
	o := Summarize(aggregates)
	tiers := EngagementTiers(aggregates)
	cleanup := Recommend(aggregates)

	volumeShare := func(senders []audit.SenderAggregate) (int, float64) {
		total := 0
		for _, a := range senders {
			total += a.TotalVolume
		}
		if o.TotalEmails == 0 {
			return total, 0
		}
		return total, float64(total) / float64(o.TotalEmails) * 100
	}

	b := &strings.Builder{}
	b.WriteString("=== EMAIL AUDIT REPORT ===\n\n")

	b.WriteString("CURRENT STATUS\n")
	fmt.Fprintf(b, "  %d unique senders\n", o.Senders)
	fmt.Fprintf(b, "  %d total emails\n", o.TotalEmails)
	fmt.Fprintf(b, "  Unread rate: %.1f%%\n", o.UnreadRate)
	fmt.Fprintf(b, "  Average open rate: %.1f%%\n", o.AvgOpenRate)
	fmt.Fprintf(b, "  Senders never opened: %d\n", o.NeverOpened)
	fmt.Fprintf(b, "  Top ignorance score: %.0f\n\n", o.TopScore)

	byVolume := make([]audit.SenderAggregate, len(aggregates))
	copy(byVolume, aggregates)
	sortByVolume(byVolume)
	topVolume, topVolumePct := volumeShare(capLen(byVolume, 10))
	topNoise, topNoisePct := volumeShare(TopNoiseMakers(aggregates, 10))
	zeroVolume, zeroPct := volumeShare(tiers[TierZero])

	b.WriteString("EMAIL DISTRIBUTION\n")
	fmt.Fprintf(b, "  Top 10 senders by volume: %d emails (%.1f%%)\n", topVolume, topVolumePct)
	fmt.Fprintf(b, "  Top 10 noise makers: %d emails (%.1f%%)\n", topNoise, topNoisePct)
	fmt.Fprintf(b, "  Zero engagement: %d senders, %d emails (%.1f%%)\n\n",
		len(tiers[TierZero]), zeroVolume, zeroPct)

	b.WriteString("ENGAGEMENT BREAKDOWN\n")
	for _, l := range tierLabels {
		senders := tiers[l.tier]
		if len(senders) == 0 {
			continue
		}
		volume, pct := volumeShare(senders)
		fmt.Fprintf(b, "  %s: %d senders, %d emails (%.1f%%)\n", l.desc, len(senders), volume, pct)
	}
	b.WriteString("\n")

	breakdown := UnreadByCategory(aggregates)
	b.WriteString("EMAIL CATEGORIES\n")
	for _, cat := range Categories {
		total := breakdown.Total[cat]
		if total == 0 {
			continue
		}
		pct := 0.0
		if o.TotalEmails > 0 {
			pct = float64(total) / float64(o.TotalEmails) * 100
		}
		fmt.Fprintf(b, "  %s: %d emails (%.1f%%)\n", cat, total, pct)
	}
	b.WriteString("\n")

	b.WriteString(RenderTop(aggregates, topN))

	b.WriteString("\nCLEANUP RECOMMENDATIONS\n")
	if len(cleanup.Unsubscribe) > 0 {
		b.WriteString("  Unsubscribe (0% open rate):\n")
		for _, a := range cleanup.Unsubscribe {
			fmt.Fprintf(b, "    %s (%d emails)\n", a.From, a.TotalVolume)
		}
	}
	if len(cleanup.Review) > 0 {
		b.WriteString("  Review (high volume, low engagement):\n")
		for _, a := range cleanup.Review {
			fmt.Fprintf(b, "    %s (%d emails, %.1f%% open)\n", a.From, a.TotalVolume, a.OpenRate)
		}
	}
	if len(cleanup.Keep) > 0 {
		b.WriteString("  Keep (most engaged):\n")
		for _, a := range cleanup.Keep {
			fmt.Fprintf(b, "    %s (%d emails, %.1f%% open)\n", truncate(a.From, 40), a.TotalVolume, a.OpenRate)
		}
	}
	return b.String()
}

func sortByVolume(s []audit.SenderAggregate) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].TotalVolume > s[j].TotalVolume })
}

var tierLabels = []struct {
	tier Tier
	desc string
}{
	{TierHigh, "High engagement (open rate >= 80%)"},
	{TierMedium, "Medium engagement (50% - 80%)"},
	{TierLow, "Low engagement (under 50%)"},
	{TierZero, "Zero engagement (never opened)"},
}

// RenderSummary renders the mailbox-wide rollup plus the share of volume the
// noisiest senders account for.
func RenderSummary(aggregates []audit.SenderAggregate) string {
	o := Summarize(aggregates)
	top := TopNoiseMakers(aggregates, 10)

	var topVolume int
	for _, a := range top {
		topVolume += a.TotalVolume
	}

	b := &strings.Builder{}
	b.WriteString("Mailbox summary\n\n")
	fmt.Fprintf(b, "Senders tracked:     %d\n", o.Senders)
	fmt.Fprintf(b, "Total emails:        %d\n", o.TotalEmails)
	fmt.Fprintf(b, "Unread emails:       %d (%.1f%%)\n", o.TotalUnread, o.UnreadRate)
	fmt.Fprintf(b, "Avg open rate:       %.1f%%\n", o.AvgOpenRate)
	fmt.Fprintf(b, "Never-opened senders: %d\n", o.NeverOpened)
	fmt.Fprintf(b, "Top ignorance score: %.0f\n", o.TopScore)
	if o.TotalEmails > 0 && len(top) > 0 {
		fmt.Fprintf(b, "\nTop %d senders account for %d emails (%.1f%% of volume)\n",
			len(top), topVolume, float64(topVolume)/float64(o.TotalEmails)*100)
	}
	return b.String()
}

// RenderEngagement renders sender counts per open-rate tier, with the
// noisiest senders of each tier listed underneath. A non-empty only value
// restricts output to that tier and lists every sender in it.
func RenderEngagement(aggregates []audit.SenderAggregate, only Tier) string {
	tiers := EngagementTiers(aggregates)

	b := &strings.Builder{}
	b.WriteString("Engagement tiers\n")
	for _, l := range tierLabels {
		if only != "" && l.tier != only {
			continue
		}
		senders := tiers[l.tier]
		fmt.Fprintf(b, "\n%s: %d senders\n", l.desc, len(senders))
		limit := 5
		if only != "" || limit > len(senders) {
			limit = len(senders)
		}
		for _, a := range senders[:limit] {
			fmt.Fprintf(b, "  %-50s %5d emails, %5.1f%% open\n",
				truncate(a.From, 50), a.TotalVolume, a.OpenRate)
		}
	}
	return b.String()
}

// RenderSender renders the full stats for every sender matching pattern.
func RenderSender(aggregates []audit.SenderAggregate, pattern string) string {
	matches := FindSender(aggregates, pattern)

	b := &strings.Builder{}
	if len(matches) == 0 {
		fmt.Fprintf(b, "No senders matching %q\n", pattern)
		return b.String()
	}
	fmt.Fprintf(b, "%d senders matching %q\n", len(matches), pattern)
	for _, a := range matches {
		fmt.Fprintf(b, "\n%s\n", a.From)
		fmt.Fprintf(b, "  Volume:          %d\n", a.TotalVolume)
		fmt.Fprintf(b, "  Unread:          %d\n", a.UnreadCount)
		fmt.Fprintf(b, "  Starred:         %d\n", a.StarredCount)
		fmt.Fprintf(b, "  Important:       %d\n", a.ImportantCount)
		fmt.Fprintf(b, "  Open rate:       %.1f%%\n", a.OpenRate)
		fmt.Fprintf(b, "  Avg age:         %.1f days\n", a.AvgRecencyDays)
		fmt.Fprintf(b, "  Ignorance score: %.0f\n", a.IgnoranceScore)
	}
	return b.String()
}

// RenderCategories renders the estimated unread counts per Gmail category.
func RenderCategories(aggregates []audit.SenderAggregate) string {
	breakdown := UnreadByCategory(aggregates)

	b := &strings.Builder{}
	b.WriteString("Unread by category (estimated)\n\n")
	fmt.Fprintf(b, "%-12s %8s %8s %10s\n", "Category", "Unread", "Total", "Unread %")
	b.WriteString(strings.Repeat("-", 42) + "\n")
	for _, cat := range Categories {
		total := breakdown.Total[cat]
		unread := breakdown.Unread[cat]
		pct := 0.0
		if total > 0 {
			pct = float64(unread) / float64(total) * 100
		}
		fmt.Fprintf(b, "%-12s %8d %8d %9.1f%%\n", cat, unread, total, pct)
	}
	return b.String()
}
