package stats

import (
	"time"

	"guestpulse-backend/internal/models"
)

// IssuePreview is the bounded dashboard projection of one issue. Only
// the projection is truncated, the stored message never is.
type IssuePreview struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// IssueSummary is the triage block of the dashboard.
type IssueSummary struct {
	TotalInPeriod int64          `json:"total_in_period"`
	Last7Days     int64          `json:"last_7_days"`
	Unread        int64          `json:"unread"`
	Recent        []IssuePreview `json:"recent"`
}

// SummarizeIssues assembles the triage counts with a preview of the
// newest issues, each message cut to previewLength runes.
func SummarizeIssues(totalInPeriod, last7Days, unread int64, recent []models.Issue, previewLength int) IssueSummary {
	previews := make([]IssuePreview, 0, len(recent))
	for _, issue := range recent {
		previews = append(previews, IssuePreview{
			ID:        issue.ID,
			Message:   TruncateMessage(issue.Message, previewLength),
			IsRead:    issue.IsRead,
			CreatedAt: issue.CreatedAt,
		})
	}

	return IssueSummary{
		TotalInPeriod: totalInPeriod,
		Last7Days:     last7Days,
		Unread:        unread,
		Recent:        previews,
	}
}

// TruncateMessage bounds a message to max runes, appending an ellipsis
// when it was cut. Counting runes keeps multi-byte text from being split
// mid-character.
func TruncateMessage(message string, max int) string {
	if max <= 0 {
		return message
	}
	runes := []rune(message)
	if len(runes) <= max {
		return message
	}
	return string(runes[:max]) + "…"
}
