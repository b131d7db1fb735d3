package stats

import (
	"sort"
	"time"

	"guestpulse-backend/internal/models"
)

// Averages closer than this are treated as a tie; the entity with more
// feedback wins the spot in both insight lists.
const tieEpsilon = 0.01

// NewestFirst is a vote sequence guaranteed to be ordered by creation
// time descending. The folds below keep the first timestamp they see per
// entity as "most recent", which is only correct under this ordering, so
// the contract lives in the type instead of a comment on the caller.
type NewestFirst struct {
	votes []models.Vote
}

// SortNewestFirst copies and sorts votes into the order the folds need.
// Rows a store already returned ordered by created_at DESC pass through
// unchanged apart from the copy.
func SortNewestFirst(votes []models.Vote) NewestFirst {
	sorted := make([]models.Vote, len(votes))
	copy(sorted, votes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return NewestFirst{votes: sorted}
}

func (nf NewestFirst) Len() int { return len(nf.votes) }

// EntityStats is the running fold state for one team or employee.
type EntityStats struct {
	Count          int
	sum            int
	LastFeedbackAt *time.Time
}

// Average returns the mean rating at full precision, or nil when the
// entity has no votes. Zero would read as "rated terribly", so it is
// never used as a stand-in for "no data".
func (s *EntityStats) Average() *float64 {
	if s == nil || s.Count == 0 {
		return nil
	}
	avg := float64(s.sum) / float64(s.Count)
	return &avg
}

func (s *EntityStats) observe(rating int, createdAt time.Time) {
	s.Count++
	s.sum += rating
	if s.LastFeedbackAt == nil {
		// First row seen is the newest one under the NewestFirst order.
		at := createdAt
		s.LastFeedbackAt = &at
	}
}

// FoldTeamStats groups votes by team, ignoring employee votes.
func FoldTeamStats(votes NewestFirst) map[string]*EntityStats {
	stats := make(map[string]*EntityStats)
	for _, vote := range votes.votes {
		if vote.TeamID == nil || *vote.TeamID == "" {
			continue
		}
		entry, ok := stats[*vote.TeamID]
		if !ok {
			entry = &EntityStats{}
			stats[*vote.TeamID] = entry
		}
		entry.observe(vote.Rating, vote.CreatedAt)
	}
	return stats
}

// FoldEmployeeStats groups votes by employee, ignoring team votes.
func FoldEmployeeStats(votes NewestFirst) map[string]*EntityStats {
	stats := make(map[string]*EntityStats)
	for _, vote := range votes.votes {
		if vote.EmployeeID == nil || *vote.EmployeeID == "" {
			continue
		}
		entry, ok := stats[*vote.EmployeeID]
		if !ok {
			entry = &EntityStats{}
			stats[*vote.EmployeeID] = entry
		}
		entry.observe(vote.Rating, vote.CreatedAt)
	}
	return stats
}

// TeamPerformanceRow is one line of the dashboard's team table.
type TeamPerformanceRow struct {
	TeamID         string     `json:"team_id"`
	TeamName       string     `json:"team_name"`
	AverageRating  *float64   `json:"average_rating"`
	FeedbackCount  int        `json:"feedback_count"`
	LastFeedbackAt *time.Time `json:"last_feedback_at"`
}

// SortDirection picks which end of the table is "first".
type SortDirection int

const (
	// AscendingAverage surfaces the weakest teams first, the default
	// dashboard view for spotting problems.
	AscendingAverage SortDirection = iota
	// DescendingAverage is the highest-rated-first presentation.
	DescendingAverage
)

// RankTeams sorts the rows by average in the given direction. Rows with
// no votes sort last either way, and the sort is stable so equal
// averages keep the caller's order.
func RankTeams(rows []TeamPerformanceRow, direction SortDirection) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].AverageRating, rows[j].AverageRating
		if a == nil && b == nil {
			return false
		}
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		if direction == DescendingAverage {
			return *a > *b
		}
		return *a < *b
	})
}

// BuildTeamPerformance joins the fold output with team names. Teams the
// name map doesn't know (deleted concurrently) are skipped rather than
// rendered unnamed.
func BuildTeamPerformance(teamStats map[string]*EntityStats, teamNames map[string]string, direction SortDirection) []TeamPerformanceRow {
	rows := make([]TeamPerformanceRow, 0, len(teamStats))
	for teamID, entry := range teamStats {
		name, ok := teamNames[teamID]
		if !ok {
			continue
		}
		rows = append(rows, TeamPerformanceRow{
			TeamID:         teamID,
			TeamName:       name,
			AverageRating:  entry.Average(),
			FeedbackCount:  entry.Count,
			LastFeedbackAt: entry.LastFeedbackAt,
		})
	}

	// Deterministic pre-sort order before the stable ranking, the fold
	// map has none.
	sort.Slice(rows, func(i, j int) bool { return rows[i].TeamID < rows[j].TeamID })
	RankTeams(rows, direction)
	return rows
}

// StaffMember is one qualified employee in the staff insight lists.
type StaffMember struct {
	EmployeeID    string  `json:"employee_id"`
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	TeamName      string  `json:"team_name,omitempty"`
	AverageRating float64 `json:"average_rating"`
	FeedbackCount int     `json:"feedback_count"`
}

// StaffInsights holds both rankings of the same qualified population.
type StaffInsights struct {
	Top            []StaffMember `json:"top"`
	NeedsAttention []StaffMember `json:"needs_attention"`
}

// BuildStaffInsights filters employees below minFeedback votes out
// entirely, then ranks the rest by average - descending for the top
// list, ascending for needs-attention - and keeps limit entries of each.
// An empty result is meaningful ("not enough data yet") and must not be
// padded with zero rows.
func BuildStaffInsights(employeeStats map[string]*EntityStats, employees map[string]models.Employee, teamNames map[string]string, minFeedback, limit int) StaffInsights {
	qualified := make([]StaffMember, 0, len(employeeStats))
	for employeeID, entry := range employeeStats {
		if entry.Count < minFeedback {
			continue
		}
		employee, ok := employees[employeeID]
		if !ok {
			continue
		}
		avg := entry.Average()
		if avg == nil {
			continue
		}
		qualified = append(qualified, StaffMember{
			EmployeeID:    employeeID,
			Name:          employee.Name,
			Role:          employee.Role,
			TeamName:      teamNames[employee.TeamID],
			AverageRating: *avg,
			FeedbackCount: entry.Count,
		})
	}

	sort.Slice(qualified, func(i, j int) bool { return qualified[i].EmployeeID < qualified[j].EmployeeID })

	top := make([]StaffMember, len(qualified))
	copy(top, qualified)
	sort.SliceStable(top, func(i, j int) bool {
		return staffLess(top[i], top[j], DescendingAverage)
	})

	needsAttention := make([]StaffMember, len(qualified))
	copy(needsAttention, qualified)
	sort.SliceStable(needsAttention, func(i, j int) bool {
		return staffLess(needsAttention[i], needsAttention[j], AscendingAverage)
	})

	return StaffInsights{
		Top:            truncateStaff(top, limit),
		NeedsAttention: truncateStaff(needsAttention, limit),
	}
}

// staffLess orders by average in the given direction, except that
// near-equal averages rank the larger sample first in both directions.
func staffLess(a, b StaffMember, direction SortDirection) bool {
	diff := a.AverageRating - b.AverageRating
	if diff < tieEpsilon && diff > -tieEpsilon {
		return a.FeedbackCount > b.FeedbackCount
	}
	if direction == DescendingAverage {
		return diff > 0
	}
	return diff < 0
}

func truncateStaff(members []StaffMember, limit int) []StaffMember {
	if limit >= 0 && len(members) > limit {
		return members[:limit]
	}
	return members
}

// RoundRating rounds an average to one decimal for presentation.
// Aggregation keeps full precision; only projections round.
func RoundRating(avg float64) float64 {
	return float64(int(avg*10+0.5)) / 10
}
