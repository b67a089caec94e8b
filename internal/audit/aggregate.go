package audit

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// Aggregate groups projected rows by sender and computes the per-sender
// noise statistics, sorted descending by ignorance score.
//
// Rows with a nil age are dropped first. Grouping is by the exact From
// string, case-sensitive, reproducing the mail service's own header
// formatting. The sort is stable so ties keep first-seen group order and
// identical input always yields identical output.
func Aggregate(rows []ProjectedEmail) []SenderAggregate {
	var (
		order  []string
		groups = make(map[string]*senderAccumulator)
		valid  int
	)

	for _, row := range rows {
		if row.AgeDays == nil {
			continue
		}
		valid++

		acc, ok := groups[row.From]
		if !ok {
			acc = &senderAccumulator{}
			groups[row.From] = acc
			order = append(order, row.From)
		}
		acc.add(row)
	}
	logrus.Infof("Filtered to %d valid messages with parseable dates", valid)

	aggregates := make([]SenderAggregate, 0, len(order))
	for _, from := range order {
		aggregates = append(aggregates, groups[from].finish(from))
	}

	sort.SliceStable(aggregates, func(i, j int) bool {
		return aggregates[i].IgnoranceScore > aggregates[j].IgnoranceScore
	})

	logrus.Infof("Aggregated data for %d senders", len(aggregates))
	return aggregates
}

type senderAccumulator struct {
	total      int
	unread     int
	starred    int
	important  int
	social     int
	updates    int
	promotions int
	ageSum     float64
}

func (a *senderAccumulator) add(row ProjectedEmail) {
	a.total++
	a.ageSum += *row.AgeDays
	if row.Unread {
		a.unread++
	}
	if row.Starred {
		a.starred++
	}
	if row.Important {
		a.important++
	}
	if row.Social {
		a.social++
	}
	if row.Updates {
		a.updates++
	}
	if row.Promotions {
		a.promotions++
	}
}

func (a *senderAccumulator) finish(from string) SenderAggregate {
	openRate := float64(a.total-a.unread) / float64(a.total) * 100

	// A corrupted cache could put unread above total; clamp so the score
	// stays within [0, total*100] instead of propagating garbage.
	if openRate < 0 {
		openRate = 0
	} else if openRate > 100 {
		openRate = 100
	}

	return SenderAggregate{
		From:            from,
		TotalVolume:     a.total,
		UnreadCount:     a.unread,
		StarredCount:    a.starred,
		ImportantCount:  a.important,
		SocialCount:     a.social,
		UpdatesCount:    a.updates,
		PromotionsCount: a.promotions,
		AvgRecencyDays:  a.ageSum / float64(a.total),
		OpenRate:        openRate,
		IgnoranceScore:  float64(a.total) * (100 - openRate),
	}
}
