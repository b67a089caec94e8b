// Package history records audit run outcomes in MySQL so the API can serve
// a run ledger across process restarts.
package history

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/huangsam/mailprune/internal/audit"
)

// AuditRun is one row per audit run, successful or failed.
type AuditRun struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	StartedAt      time.Time `json:"started_at" gorm:"not null;index"`
	DurationMs     int64     `json:"duration_ms"`
	Listed         int       `json:"listed"`
	CacheHits      int       `json:"cache_hits"`
	Fetched        int       `json:"fetched"`
	Pruned         int       `json:"pruned"`
	TrackedSenders int       `json:"tracked_senders"`
	Status         string    `json:"status" gorm:"type:varchar(50);not null"`
	ErrorMsg       string    `json:"error_msg" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for AuditRun
func (AuditRun) TableName() string {
	return "audit_runs"
}

// InitDatabase opens the MySQL connection and runs migrations.
func InitDatabase(dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(
		logrus.StandardLogger(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&AuditRun{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	logrus.Info("Database initialized successfully")
	return db, nil
}

// Repository reads and writes the run ledger.
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps an open database handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record persists the outcome of one run. It satisfies the audit package's
// RunRecorder; a storage failure is logged and swallowed so a flaky ledger
// never breaks the pipeline.
func (r *Repository) Record(result *audit.Result, runErr error) {
	run := AuditRun{Status: "success"}
	if runErr != nil {
		run.Status = "failed"
		run.ErrorMsg = runErr.Error()
		run.StartedAt = time.Now()
	}
	if result != nil {
		run.StartedAt = result.StartedAt
		run.DurationMs = result.Duration.Milliseconds()
		run.Listed = result.Listed
		run.CacheHits = result.CacheHits
		run.Fetched = result.Fetched
		run.Pruned = result.Pruned
		run.TrackedSenders = len(result.Aggregates)
	}

	if err := r.db.Create(&run).Error; err != nil {
		logrus.Errorf("Failed to record audit run: %v", err)
	}
}

// RecentRuns returns the latest runs, newest first.
func (r *Repository) RecentRuns(limit int) ([]AuditRun, error) {
	var runs []AuditRun
	result := r.db.Order("started_at DESC").Limit(limit).Find(&runs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get audit runs: %w", result.Error)
	}
	return runs, nil
}
