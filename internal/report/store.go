// Package report persists the per-sender aggregate table as CSV and derives
// the summary views the CLI renders from it.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/huangsam/mailprune/internal/audit"
)

var columns = []string{
	"from",
	"total_volume",
	"unread_count",
	"starred_count",
	"important_count",
	"social_count",
	"updates_count",
	"promotions_count",
	"avg_recency_days",
	"open_rate",
	"ignorance_score",
}

// Store reads and writes the noise report file.
type Store struct {
	path string
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes the full table, one row per sender, overwriting any prior
// contents. Floats are written at full precision; rounding happens only in
// display layers.
func (s *Store) Save(aggregates []audit.SenderAggregate) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, a := range aggregates {
		row := []string{
			a.From,
			strconv.Itoa(a.TotalVolume),
			strconv.Itoa(a.UnreadCount),
			strconv.Itoa(a.StarredCount),
			strconv.Itoa(a.ImportantCount),
			strconv.Itoa(a.SocialCount),
			strconv.Itoa(a.UpdatesCount),
			strconv.Itoa(a.PromotionsCount),
			strconv.FormatFloat(a.AvgRecencyDays, 'f', -1, 64),
			strconv.FormatFloat(a.OpenRate, 'f', -1, 64),
			strconv.FormatFloat(a.IgnoranceScore, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}

	logrus.Infof("Report saved to %s", s.path)
	return nil
}

// Load reads the saved table. A missing or unparsable file yields an empty
// table, not an error; callers check emptiness before proceeding.
func (s *Store) Load() []audit.SenderAggregate {
	f, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Warnf("Failed to open report %s: %v", s.path, err)
		}
		return nil
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		logrus.Warnf("Failed to parse report %s: %v", s.path, err)
		return nil
	}
	if len(rows) < 2 {
		return nil
	}

	aggregates := make([]audit.SenderAggregate, 0, len(rows)-1)
	for _, row := range rows[1:] {
		a, err := parseRow(row)
		if err != nil {
			logrus.Warnf("Failed to parse report %s: %v", s.path, err)
			return nil
		}
		aggregates = append(aggregates, a)
	}
	return aggregates
}

func parseRow(row []string) (audit.SenderAggregate, error) {
	var a audit.SenderAggregate
	if len(row) != len(columns) {
		return a, fmt.Errorf("expected %d columns, got %d", len(columns), len(row))
	}

	ints := make([]int, 7)
	for i := 0; i < 7; i++ {
		v, err := strconv.Atoi(row[i+1])
		if err != nil {
			return a, fmt.Errorf("column %s: %w", columns[i+1], err)
		}
		ints[i] = v
	}
	floats := make([]float64, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(row[i+8], 64)
		if err != nil {
			return a, fmt.Errorf("column %s: %w", columns[i+8], err)
		}
		floats[i] = v
	}

	a.From = row[0]
	a.TotalVolume = ints[0]
	a.UnreadCount = ints[1]
	a.StarredCount = ints[2]
	a.ImportantCount = ints[3]
	a.SocialCount = ints[4]
	a.UpdatesCount = ints[5]
	a.PromotionsCount = ints[6]
	a.AvgRecencyDays = floats[0]
	a.OpenRate = floats[1]
	a.IgnoranceScore = floats[2]
	return a, nil
}
