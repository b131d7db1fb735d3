package stats

import (
	"strings"
	"testing"
	"time"

	"guestpulse-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateMessage(t *testing.T) {
	assert.Equal(t, "short", TruncateMessage("short", 80))
	assert.Equal(t, strings.Repeat("a", 80), TruncateMessage(strings.Repeat("a", 80), 80))

	long := strings.Repeat("a", 81)
	truncated := TruncateMessage(long, 80)
	assert.Equal(t, strings.Repeat("a", 80)+"…", truncated)

	// Rune-safe: multi-byte characters are never split
	accented := strings.Repeat("è", 85)
	truncated = TruncateMessage(accented, 80)
	assert.Equal(t, strings.Repeat("è", 80)+"…", truncated)

	// Non-positive budget disables truncation
	assert.Equal(t, long, TruncateMessage(long, 0))
}

func TestSummarizeIssues(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	issues := []models.Issue{
		{ID: "i1", Message: strings.Repeat("x", 100), IsRead: false, CreatedAt: now},
		{ID: "i2", Message: "the shower is cold", IsRead: true, CreatedAt: now.Add(-time.Hour)},
	}

	summary := SummarizeIssues(12, 4, 3, issues, 80)
	assert.Equal(t, int64(12), summary.TotalInPeriod)
	assert.Equal(t, int64(4), summary.Last7Days)
	assert.Equal(t, int64(3), summary.Unread)

	require.Len(t, summary.Recent, 2)
	assert.Equal(t, strings.Repeat("x", 80)+"…", summary.Recent[0].Message)
	assert.False(t, summary.Recent[0].IsRead)
	assert.Equal(t, "the shower is cold", summary.Recent[1].Message)
	assert.True(t, summary.Recent[1].IsRead)

	// Truncation only touches the projection
	assert.Len(t, issues[0].Message, 100)
}

func TestSummarizeIssuesEmpty(t *testing.T) {
	summary := SummarizeIssues(0, 0, 0, nil, 80)
	assert.Empty(t, summary.Recent)
	assert.NotNil(t, summary.Recent)
}
