package handlers

import (
	"net/http"
	"sort"
	"time"

	"guestpulse-backend/internal/models"
	"guestpulse-backend/internal/stats"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// Raw votes shown in the admin per-entity detail modal.
const voteDetailLimit = 100

type usageHealth struct {
	TotalFeedbackInPeriod int64 `json:"total_feedback_in_period"`
	FeedbackLast7Days     int64 `json:"feedback_last_7_days"`
}

type dashboardResponse struct {
	Period              stats.Period               `json:"period"`
	Usage               usageHealth                `json:"usage"`
	TeamPerformance     []stats.TeamPerformanceRow `json:"team_performance"`
	TotalIssuesInPeriod int64                      `json:"total_issues_in_period"`
	StaffInsights       stats.StaffInsights        `json:"staff_insights"`
	IssuesOverview      stats.IssueSummary         `json:"issues_overview"`
}

// Dashboard renders the manager overview: usage counters, the team
// performance table, the staff insight lists and the issue triage
// block. The independent store reads run concurrently and any failure
// fails the whole page; there is no partially rendered dashboard.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	period := stats.ParsePeriod(c.QueryParam("period"))
	// One window for the whole render so every query agrees on "now".
	window := stats.NewWindow(period, time.Now())

	var (
		votes           []models.Vote
		totalInPeriod   int64
		last7Days       int64
		issuesInPeriod  int64
		issuesLast7Days int64
		unreadIssues    int64
		recentIssues    []models.Issue
	)

	group, ctx := errgroup.WithContext(c.Request().Context())
	db := h.DB.WithContext(ctx)

	group.Go(func() (err error) {
		votes, err = models.VotesSince(db, structure.ID, window.PeriodStart)
		return err
	})
	group.Go(func() (err error) {
		totalInPeriod, err = models.CountVotesSince(db, structure.ID, window.PeriodStart)
		return err
	})
	group.Go(func() (err error) {
		last7Days, err = models.CountVotesSince(db, structure.ID, &window.SevenDaysAgo)
		return err
	})
	group.Go(func() (err error) {
		issuesInPeriod, err = models.CountIssuesSince(db, structure.ID, window.PeriodStart)
		return err
	})
	group.Go(func() (err error) {
		issuesLast7Days, err = models.CountIssuesSince(db, structure.ID, &window.SevenDaysAgo)
		return err
	})
	group.Go(func() (err error) {
		unreadIssues, err = models.CountUnreadIssues(db, structure.ID)
		return err
	})
	group.Go(func() (err error) {
		recentIssues, err = models.RecentIssues(db, structure.ID, h.Config.Dashboard.RecentIssuesLimit)
		return err
	})

	if err := group.Wait(); err != nil {
		c.Logger().Errorf("Dashboard reads failed for structure %s: %v", structure.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load dashboard")
	}

	ordered := stats.SortNewestFirst(votes)
	teamStats := stats.FoldTeamStats(ordered)
	employeeStats := stats.FoldEmployeeStats(ordered)

	// Second stage: resolve names for the entities the folds surfaced.
	// These reads are independent of one another as well.
	var (
		teamNames     map[string]string
		employeesByID map[string]models.Employee
	)

	nameGroup, nameCtx := errgroup.WithContext(c.Request().Context())
	nameDB := h.DB.WithContext(nameCtx)

	nameGroup.Go(func() (err error) {
		teamNames, err = models.TeamNamesByID(nameDB, structure.ID, keysOf(teamStats))
		return err
	})
	nameGroup.Go(func() (err error) {
		employeesByID, err = models.EmployeesByID(nameDB, structure.ID, keysOf(employeeStats))
		return err
	})

	if err := nameGroup.Wait(); err != nil {
		c.Logger().Errorf("Dashboard name reads failed for structure %s: %v", structure.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load dashboard")
	}

	// Employee rows may reference teams that got no direct team vote.
	employeeTeamNames, err := h.teamNamesForEmployees(structure.ID, teamNames, employeesByID)
	if err != nil {
		c.Logger().Errorf("Dashboard team name reads failed for structure %s: %v", structure.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load dashboard")
	}

	response := dashboardResponse{
		Period: period,
		Usage: usageHealth{
			TotalFeedbackInPeriod: totalInPeriod,
			FeedbackLast7Days:     last7Days,
		},
		// Weakest teams first so problems surface at the top.
		TeamPerformance:     stats.BuildTeamPerformance(teamStats, teamNames, stats.AscendingAverage),
		TotalIssuesInPeriod: issuesInPeriod,
		StaffInsights: stats.BuildStaffInsights(
			employeeStats,
			employeesByID,
			employeeTeamNames,
			h.Config.Dashboard.MinStaffFeedback,
			h.Config.Dashboard.StaffListSize,
		),
		IssuesOverview: stats.SummarizeIssues(
			issuesInPeriod,
			issuesLast7Days,
			unreadIssues,
			recentIssues,
			h.Config.Dashboard.IssuePreviewLength,
		),
	}

	return c.JSON(http.StatusOK, response)
}

// teamNamesForEmployees widens the known team names with the teams the
// rated employees belong to.
func (h *AdminHandler) teamNamesForEmployees(structureID string, known map[string]string, employees map[string]models.Employee) (map[string]string, error) {
	var missing []string
	for _, employee := range employees {
		if _, ok := known[employee.TeamID]; !ok {
			missing = append(missing, employee.TeamID)
		}
	}
	if len(missing) == 0 {
		return known, nil
	}

	extra, err := models.TeamNamesByID(h.DB, structureID, missing)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(known)+len(extra))
	for id, name := range known {
		merged[id] = name
	}
	for id, name := range extra {
		merged[id] = name
	}
	return merged, nil
}

func keysOf(m map[string]*stats.EntityStats) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}

type entityVoteStats struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Role          string     `json:"role,omitempty"`
	TeamName      string     `json:"team_name,omitempty"`
	TotalVotes    int        `json:"total_votes"`
	AverageRating *float64   `json:"average_rating"`
	LastVoteAt    *time.Time `json:"last_vote_at"`
}

type votesOverviewResponse struct {
	Period        stats.Period      `json:"period"`
	TotalVotes    int               `json:"total_votes"`
	AverageRating *float64          `json:"average_rating"`
	Teams         []entityVoteStats `json:"teams"`
	Employees     []entityVoteStats `json:"employees"`
}

// VotesOverview is the detailed votes page: per-team and per-employee
// stat tables over the selected period. The sort query parameter picks
// the direction; both presentations are supported.
func (h *AdminHandler) VotesOverview(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	period := stats.ParsePeriod(c.QueryParam("period"))
	window := stats.NewWindow(period, time.Now())

	direction := stats.AscendingAverage
	if c.QueryParam("sort") == "desc" {
		direction = stats.DescendingAverage
	}

	votes, err := models.VotesSince(h.DB, structure.ID, window.PeriodStart)
	if err != nil {
		c.Logger().Errorf("Votes overview read failed for structure %s: %v", structure.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load votes")
	}

	ordered := stats.SortNewestFirst(votes)
	teamStats := stats.FoldTeamStats(ordered)
	employeeStats := stats.FoldEmployeeStats(ordered)

	var (
		teamNames     map[string]string
		employeesByID map[string]models.Employee
	)

	group, ctx := errgroup.WithContext(c.Request().Context())
	db := h.DB.WithContext(ctx)

	group.Go(func() (err error) {
		teamNames, err = models.TeamNamesByID(db, structure.ID, keysOf(teamStats))
		return err
	})
	group.Go(func() (err error) {
		employeesByID, err = models.EmployeesByID(db, structure.ID, keysOf(employeeStats))
		return err
	})

	if err := group.Wait(); err != nil {
		c.Logger().Errorf("Votes overview name reads failed for structure %s: %v", structure.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load votes")
	}

	employeeTeamNames, err := h.teamNamesForEmployees(structure.ID, teamNames, employeesByID)
	if err != nil {
		c.Logger().Errorf("Votes overview team name reads failed for structure %s: %v", structure.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load votes")
	}

	teamRows := make([]entityVoteStats, 0, len(teamStats))
	for teamID, entry := range teamStats {
		name, ok := teamNames[teamID]
		if !ok {
			continue
		}
		teamRows = append(teamRows, entityVoteStats{
			ID:            teamID,
			Name:          name,
			TotalVotes:    entry.Count,
			AverageRating: entry.Average(),
			LastVoteAt:    entry.LastFeedbackAt,
		})
	}

	employeeRows := make([]entityVoteStats, 0, len(employeeStats))
	for employeeID, entry := range employeeStats {
		employee, ok := employeesByID[employeeID]
		if !ok {
			continue
		}
		employeeRows = append(employeeRows, entityVoteStats{
			ID:            employeeID,
			Name:          employee.Name,
			Role:          employee.Role,
			TeamName:      employeeTeamNames[employee.TeamID],
			TotalVotes:    entry.Count,
			AverageRating: entry.Average(),
			LastVoteAt:    entry.LastFeedbackAt,
		})
	}

	sortEntityStats(teamRows, direction)
	sortEntityStats(employeeRows, direction)

	var overallAverage *float64
	if len(votes) > 0 {
		sum := 0
		for _, vote := range votes {
			sum += vote.Rating
		}
		avg := float64(sum) / float64(len(votes))
		overallAverage = &avg
	}

	return c.JSON(http.StatusOK, votesOverviewResponse{
		Period:        period,
		TotalVotes:    len(votes),
		AverageRating: overallAverage,
		Teams:         teamRows,
		Employees:     employeeRows,
	})
}

type voteDetailRow struct {
	ID        string    `json:"id"`
	Rating    int       `json:"rating"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteDetail returns the newest raw votes for one team or employee of
// the manager's structure. Entities of other structures read as not
// found.
func (h *AdminHandler) VoteDetail(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	entityType := c.QueryParam("type")
	entityID := c.QueryParam("id")
	if entityType == "" || entityID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "type and id are required")
	}

	var target models.VoteTarget
	switch entityType {
	case "team":
		if _, err := models.GetTeamForStructure(h.DB, entityID, structure.ID); err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "Team not found")
		}
		target = models.TeamTarget(entityID)
	case "employee":
		if _, err := models.GetEmployeeForStructure(h.DB, entityID, structure.ID); err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "Employee not found")
		}
		target = models.EmployeeTarget(entityID)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "type must be 'team' or 'employee'")
	}

	votes, err := models.RecentVotesForTarget(h.DB, structure.ID, target, voteDetailLimit)
	if err != nil {
		c.Logger().Errorf("Vote detail read failed for structure %s: %v", structure.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load votes")
	}

	rows := make([]voteDetailRow, 0, len(votes))
	for _, vote := range votes {
		voteType := "employee"
		if vote.TeamID != nil {
			voteType = "team"
		}
		rows = append(rows, voteDetailRow{
			ID:        vote.ID,
			Rating:    vote.Rating,
			Type:      voteType,
			CreatedAt: vote.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{"votes": rows})
}

// sortEntityStats orders a stat table by average with rows lacking any
// vote last, mirroring the team ranking semantics.
func sortEntityStats(rows []entityVoteStats, direction stats.SortDirection) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].AverageRating, rows[j].AverageRating
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		if direction == stats.DescendingAverage {
			return *a > *b
		}
		return *a < *b
	})
}
