package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/huangsam/mailprune/internal/audit"
	"github.com/huangsam/mailprune/internal/report"
)

// loadedReport loads the saved report, answering 404 when no audit has run.
func (h *Handlers) loadedReport(c *gin.Context) ([]audit.SenderAggregate, bool) {
	aggregates := h.reports.Load()
	if len(aggregates) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "report_empty",
			Message: "No audit data found; run an audit first",
			Code:    http.StatusNotFound,
		})
		return nil, false
	}
	return aggregates, true
}

// GetReport returns the full sender table, filtered by the optional
// ?sender= substring.
func (h *Handlers) GetReport(c *gin.Context) {
	aggregates, ok := h.loadedReport(c)
	if !ok {
		return
	}

	if pattern := c.Query("sender"); pattern != "" {
		aggregates = report.FindSender(aggregates, pattern)
	}

	c.JSON(http.StatusOK, gin.H{
		"senders": aggregates,
		"count":   len(aggregates),
	})
}

// GetTopNoiseMakers returns the ?limit= highest-scoring senders (default 20).
func (h *Handlers) GetTopNoiseMakers(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
				Code:    http.StatusBadRequest,
			})
			return
		}
		limit = parsed
	}

	aggregates, ok := h.loadedReport(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"senders": report.TopNoiseMakers(aggregates, limit),
	})
}

// GetSummary returns the mailbox-wide rollup.
func (h *Handlers) GetSummary(c *gin.Context) {
	aggregates, ok := h.loadedReport(c)
	if !ok {
		return
	}

	overall := report.Summarize(aggregates)
	c.JSON(http.StatusOK, gin.H{
		"senders":              overall.Senders,
		"total_emails":         overall.TotalEmails,
		"total_unread":         overall.TotalUnread,
		"unread_rate":          overall.UnreadRate,
		"avg_open_rate":        overall.AvgOpenRate,
		"never_opened_senders": overall.NeverOpened,
		"top_ignorance_score":  overall.TopScore,
	})
}

// GetEngagement returns senders grouped by open-rate tier.
func (h *Handlers) GetEngagement(c *gin.Context) {
	aggregates, ok := h.loadedReport(c)
	if !ok {
		return
	}

	tiers := report.EngagementTiers(aggregates)

	c.JSON(http.StatusOK, gin.H{
		"high":   tiers[report.TierHigh],
		"medium": tiers[report.TierMedium],
		"low":    tiers[report.TierLow],
		"zero":   tiers[report.TierZero],
	})
}

// GetCategories returns the estimated unread breakdown per Gmail category.
func (h *Handlers) GetCategories(c *gin.Context) {
	aggregates, ok := h.loadedReport(c)
	if !ok {
		return
	}

	breakdown := report.UnreadByCategory(aggregates)

	c.JSON(http.StatusOK, gin.H{
		"unread": breakdown.Unread,
		"total":  breakdown.Total,
	})
}

// GetRuns returns the recent audit run ledger.
func (h *Handlers) GetRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
				Code:    http.StatusBadRequest,
			})
			return
		}
		limit = parsed
	}

	runs, err := h.runs.RecentRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch audit runs",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
