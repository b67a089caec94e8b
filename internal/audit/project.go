package audit

import (
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/huangsam/mailprune/internal/cache"
	mailremote "github.com/huangsam/mailprune/internal/mail"
)

// Fallback layouts for Date headers that net/mail rejects. Senders get the
// RFC 2822 format wrong in predictable ways.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

// Project extracts one flat row per id from the cached records. An id absent
// from the cache (its fetch failed) is skipped with a warning. Header
// defaults and the nil-age rule follow the report schema: missing From is
// "Unknown", missing Subject is "No Subject", and any date that cannot be
// parsed leaves AgeDays nil.
func Project(records map[string]*cache.Record, ids []string, now time.Time) []ProjectedEmail {
	rows := make([]ProjectedEmail, 0, len(ids))

	for _, id := range ids {
		record, ok := records[id]
		if !ok {
			logrus.Warnf("Message %s not in cache, skipping", id)
			continue
		}

		row := ProjectedEmail{
			ID:         id,
			From:       record.Header("From", "Unknown"),
			Subject:    record.Header("Subject", "No Subject"),
			Date:       record.Header("Date", ""),
			Unread:     record.HasLabel(mailremote.LabelUnread),
			Starred:    record.HasLabel(mailremote.LabelStarred),
			Important:  record.HasLabel(mailremote.LabelImportant),
			Social:     record.HasLabel(mailremote.LabelSocial),
			Updates:    record.HasLabel(mailremote.LabelUpdates),
			Promotions: record.HasLabel(mailremote.LabelPromotions),
		}

		if sent, err := parseDate(row.Date); err == nil {
			age := math.Floor(now.Sub(sent).Hours() / 24)
			row.AgeDays = &age
		}

		rows = append(rows, row)
	}

	logrus.Infof("Processed %d messages", len(rows))
	return rows
}

// parseDate tries the strict RFC 2822 parser first, then a chain of layouts
// seen in the wild, including a trailing "(MST)" comment variant.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &time.ParseError{Message: "empty date"}
	}

	parsed, err := mail.ParseDate(value)
	if err == nil {
		return parsed, nil
	}

	trimmed := stripTrailingComment(value)
	for _, layout := range dateLayouts {
		if parsed, layoutErr := time.Parse(layout, trimmed); layoutErr == nil {
			return parsed, nil
		}
	}
	return time.Time{}, err
}

// stripTrailingComment removes a trailing parenthesized zone comment such as
// " (UTC)" that trips up the layout parsers.
func stripTrailingComment(value string) string {
	open := strings.LastIndex(value, " (")
	if open == -1 {
		return value
	}
	closing := strings.LastIndex(value, ")")
	if closing <= open {
		return value
	}
	return strings.TrimSpace(value[:open] + value[closing+1:])
}
