//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"guestpulse-backend/internal/config"
	"guestpulse-backend/internal/email"
	"guestpulse-backend/internal/handlers"
	"guestpulse-backend/internal/models"
	"guestpulse-backend/internal/server"

	"gorm.io/gorm"
)

// setupTestServerFast creates a test server with SQLite in-memory and no Redis.
// Much faster than containers, and it goes through the real server.Initialize()
// so routing, migrations and middleware match production.
func setupTestServerFast(t *testing.T) (*server.Server, func()) {
	cfg := &config.Config{}
	cfg.Server.Port = "8080"
	cfg.Server.Host = "localhost"
	cfg.Server.DeployDomain = "localhost:8080"
	cfg.Server.Debug = false
	// One in-memory database per test; the name keeps parallel tests apart
	cfg.Database.DSN = "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	cfg.Database.RedisURI = "" // server skips Redis setup
	cfg.Auth.SessionSecret = "test-secret-key-for-testing-only"
	cfg.Resend.DefaultSender = "test@example.com"
	cfg.Dashboard.MinStaffFeedback = 3
	cfg.Dashboard.StaffListSize = 5
	cfg.Dashboard.RecentIssuesLimit = 5
	cfg.Dashboard.IssuePreviewLength = 80
	cfg.Issues.MaxMessageLength = 140

	srv := server.New(cfg)
	srv.Echo.Logger.SetLevel(log.ERROR)

	err := srv.Initialize()
	require.NoError(t, err)

	cleanup := func() {
		if srv.DB != nil {
			sqlDB, _ := srv.DB.DB()
			if sqlDB != nil {
				sqlDB.Close()
			}
		}
	}

	return srv, cleanup
}

type fixture struct {
	Structure *models.Structure
	Manager   *models.Manager
	Token     string
}

// seedStructure creates a structure with its manager and returns a valid
// admin token for it.
func seedStructure(t *testing.T, srv *server.Server, name, slug, managerEmail string) fixture {
	structure := &models.Structure{Name: name, Slug: slug}
	require.NoError(t, srv.DB.Create(structure).Error)

	manager := &models.Manager{
		StructureID: structure.ID,
		Email:       managerEmail,
		Password:    "password123",
	}
	require.NoError(t, srv.DB.Create(manager).Error)

	token, err := srv.JwtIssuer.GenerateToken(manager.Email)
	require.NoError(t, err)

	return fixture{Structure: structure, Manager: manager, Token: token}
}

func createTeam(t *testing.T, db *gorm.DB, structureID, name string, active bool) *models.Team {
	team := &models.Team{StructureID: structureID, Name: name, IsActive: active}
	require.NoError(t, db.Create(team).Error)
	if !active {
		require.NoError(t, db.Model(team).Update("is_active", false).Error)
	}
	return team
}

func createEmployee(t *testing.T, db *gorm.DB, structureID, teamID, name, role string) *models.Employee {
	employee := &models.Employee{StructureID: structureID, TeamID: teamID, Name: name, Role: role, IsActive: true}
	require.NoError(t, db.Create(employee).Error)
	return employee
}

func createVote(t *testing.T, db *gorm.DB, structureID string, target models.VoteTarget, rating int, age time.Duration) {
	vote, err := models.NewVote(structureID, target, rating)
	require.NoError(t, err)
	require.NoError(t, db.Create(vote).Error)
	if age > 0 {
		require.NoError(t, db.Model(vote).Update("created_at", time.Now().Add(-age)).Error)
	}
}

func doJSON(srv *server.Server, method, path, token string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	return rec
}

func TestSignIn(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	seedStructure(t, srv, "Hotel Belvedere", "hotel-belvedere", "manager@belvedere.it")

	rec := doJSON(srv, http.MethodPost, "/api/sign-in", "", map[string]any{
		"email":    "manager@belvedere.it",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, gjson.Get(rec.Body.String(), "token").String())

	rec = doJSON(srv, http.MethodPost, "/api/sign-in", "", map[string]any{
		"email":    "manager@belvedere.it",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(srv, http.MethodPost, "/api/sign-in", "", map[string]any{
		"email":    "nobody@belvedere.it",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	rec := doJSON(srv, http.MethodGet, "/api/admin/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetPublicStructure(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	fix := seedStructure(t, srv, "Hotel Belvedere", "hotel-belvedere", "manager@belvedere.it")
	reception := createTeam(t, srv.DB, fix.Structure.ID, "Reception", true)
	createTeam(t, srv.DB, fix.Structure.ID, "Storage", false)
	createEmployee(t, srv.DB, fix.Structure.ID, reception.ID, "Anna", "Receptionist")
	hidden := createEmployee(t, srv.DB, fix.Structure.ID, reception.ID, "Bruno", "Porter")
	require.NoError(t, srv.DB.Model(hidden).Update("is_active", false).Error)

	rec := doJSON(srv, http.MethodGet, "/api/public/structure/hotel-belvedere", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, "Hotel Belvedere", gjson.Get(body, "structure.name").String())
	// Inactive teams and employees never reach the guest page
	require.Equal(t, int64(1), gjson.Get(body, "teams.#").Int())
	assert.Equal(t, "Reception", gjson.Get(body, "teams.0.name").String())
	require.Equal(t, int64(1), gjson.Get(body, "teams.0.employees.#").Int())
	assert.Equal(t, "Anna", gjson.Get(body, "teams.0.employees.0.name").String())

	rec = doJSON(srv, http.MethodGet, "/api/public/structure/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitVoteContract(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	fix := seedStructure(t, srv, "Hotel Belvedere", "hotel-belvedere", "manager@belvedere.it")
	other := seedStructure(t, srv, "Hotel Paradiso", "hotel-paradiso", "manager@paradiso.it")
	team := createTeam(t, srv.DB, fix.Structure.ID, "Reception", true)
	employee := createEmployee(t, srv.DB, fix.Structure.ID, team.ID, "Anna", "Receptionist")
	foreignTeam := createTeam(t, srv.DB, other.Structure.ID, "Spa", true)

	// Valid team vote
	rec := doJSON(srv, http.MethodPost, "/api/vote", "", map[string]any{
		"structure_id": fix.Structure.ID,
		"team_id":      team.ID,
		"rating":       3,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, gjson.Get(rec.Body.String(), "id").String())

	// Valid employee vote
	rec = doJSON(srv, http.MethodPost, "/api/vote", "", map[string]any{
		"structure_id": fix.Structure.ID,
		"employee_id":  employee.ID,
		"rating":       1,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Both targets
	rec = doJSON(srv, http.MethodPost, "/api/vote", "", map[string]any{
		"structure_id": fix.Structure.ID,
		"team_id":      team.ID,
		"employee_id":  employee.ID,
		"rating":       2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Neither target
	rec = doJSON(srv, http.MethodPost, "/api/vote", "", map[string]any{
		"structure_id": fix.Structure.ID,
		"rating":       2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Rating out of range
	rec = doJSON(srv, http.MethodPost, "/api/vote", "", map[string]any{
		"structure_id": fix.Structure.ID,
		"team_id":      team.ID,
		"rating":       4,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A team of another structure behaves like a missing team
	rec = doJSON(srv, http.MethodPost, "/api/vote", "", map[string]any{
		"structure_id": fix.Structure.ID,
		"team_id":      foreignTeam.ID,
		"rating":       2,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var count int64
	require.NoError(t, srv.DB.Model(&models.Vote{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

// recordingEmailClient captures fan-out calls instead of hitting Resend.
type recordingEmailClient struct {
	recipients []string
	data       email.IssueAlertData
	calls      int
}

func (r *recordingEmailClient) SendIssueAlert(recipients []string, data email.IssueAlertData) []email.DeliveryResult {
	r.calls++
	r.recipients = recipients
	r.data = data
	results := make([]email.DeliveryResult, len(recipients))
	for i, recipient := range recipients {
		results[i] = email.DeliveryResult{Recipient: recipient}
	}
	return results
}

func TestSubmitIssue(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	fix := seedStructure(t, srv, "Hotel Belvedere", "hotel-belvedere", "manager@belvedere.it")
	require.NoError(t, srv.DB.Create(&models.NotificationEmail{
		StructureID:  fix.Structure.ID,
		Email:        "alerts@belvedere.it",
		NotifyIssues: true,
	}).Error)

	// Swap the route to a guest handler carrying a recording email client
	recorder := &recordingEmailClient{}
	guest := handlers.NewGuestHandler(srv.DB, srv.Config, srv.Redis, recorder)
	srv.Echo.Router().Add(http.MethodPost, "/api/issue", guest.SubmitIssue)

	rec := doJSON(srv, http.MethodPost, "/api/issue", "", map[string]any{
		"structure_id": fix.Structure.ID,
		"message":      "The shower in room 12 is cold",
		"room_or_name": "Room 12",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var issue models.Issue
	require.NoError(t, srv.DB.First(&issue, "structure_id = ?", fix.Structure.ID).Error)
	assert.Equal(t, "The shower in room 12 is cold", issue.Message)
	require.NotNil(t, issue.RoomOrName)
	assert.Equal(t, "Room 12", *issue.RoomOrName)
	assert.False(t, issue.IsRead)

	assert.Equal(t, 1, recorder.calls)
	assert.Equal(t, []string{"alerts@belvedere.it"}, recorder.recipients)
	assert.Equal(t, "Hotel Belvedere", recorder.data.StructureName)

	// Empty after trimming
	rec = doJSON(srv, http.MethodPost, "/api/issue", "", map[string]any{
		"structure_id": fix.Structure.ID,
		"message":      "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Over the character limit
	rec = doJSON(srv, http.MethodPost, "/api/issue", "", map[string]any{
		"structure_id": fix.Structure.ID,
		"message":      strings.Repeat("a", 141),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown structure
	rec = doJSON(srv, http.MethodPost, "/api/issue", "", map[string]any{
		"structure_id": "missing",
		"message":      "hello",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1, recorder.calls)
}

func TestSubmitIssueWithoutSubscribers(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	fix := seedStructure(t, srv, "Hotel Belvedere", "hotel-belvedere", "manager@belvedere.it")

	// Zero subscribers is a normal outcome; the guest still gets success
	rec := doJSON(srv, http.MethodPost, "/api/issue", "", map[string]any{
		"structure_id": fix.Structure.ID,
		"message":      "Nobody is listening",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var count int64
	require.NoError(t, srv.DB.Model(&models.Issue{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDashboard(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	fix := seedStructure(t, srv, "Hotel Belvedere", "hotel-belvedere", "manager@belvedere.it")
	reception := createTeam(t, srv.DB, fix.Structure.ID, "Reception", true)
	bar := createTeam(t, srv.DB, fix.Structure.ID, "Bar", true)
	anna := createEmployee(t, srv.DB, fix.Structure.ID, reception.ID, "Anna", "Receptionist")
	bruno := createEmployee(t, srv.DB, fix.Structure.ID, bar.ID, "Bruno", "Barman")

	// Reception averages 1.5, Bar averages 3.0
	createVote(t, srv.DB, fix.Structure.ID, models.TeamTarget(reception.ID), 1, time.Hour)
	createVote(t, srv.DB, fix.Structure.ID, models.TeamTarget(reception.ID), 2, 2*time.Hour)
	createVote(t, srv.DB, fix.Structure.ID, models.TeamTarget(bar.ID), 3, time.Hour)

	// Anna qualifies with three votes, Bruno stays below the threshold
	createVote(t, srv.DB, fix.Structure.ID, models.EmployeeTarget(anna.ID), 3, time.Hour)
	createVote(t, srv.DB, fix.Structure.ID, models.EmployeeTarget(anna.ID), 3, 2*time.Hour)
	createVote(t, srv.DB, fix.Structure.ID, models.EmployeeTarget(anna.ID), 2, 3*time.Hour)
	createVote(t, srv.DB, fix.Structure.ID, models.EmployeeTarget(bruno.ID), 3, time.Hour)

	// An old vote outside the default 30 day window
	createVote(t, srv.DB, fix.Structure.ID, models.TeamTarget(reception.ID), 3, 40*24*time.Hour)

	require.NoError(t, srv.DB.Create(&models.Issue{StructureID: fix.Structure.ID, Message: "cold shower"}).Error)

	rec := doJSON(srv, http.MethodGet, "/api/admin/dashboard", fix.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Equal(t, "30d", gjson.Get(body, "period").String())
	assert.Equal(t, int64(7), gjson.Get(body, "usage.total_feedback_in_period").Int())
	assert.Equal(t, int64(7), gjson.Get(body, "usage.feedback_last_7_days").Int())

	// Weakest team first
	require.Equal(t, int64(2), gjson.Get(body, "team_performance.#").Int())
	assert.Equal(t, "Reception", gjson.Get(body, "team_performance.0.team_name").String())
	assert.InDelta(t, 1.5, gjson.Get(body, "team_performance.0.average_rating").Float(), 1e-9)
	assert.Equal(t, int64(2), gjson.Get(body, "team_performance.0.feedback_count").Int())
	assert.Equal(t, "Bar", gjson.Get(body, "team_performance.1.team_name").String())

	// Only Anna clears the minimum sample size
	require.Equal(t, int64(1), gjson.Get(body, "staff_insights.top.#").Int())
	assert.Equal(t, "Anna", gjson.Get(body, "staff_insights.top.0.name").String())
	assert.Equal(t, "Reception", gjson.Get(body, "staff_insights.top.0.team_name").String())
	require.Equal(t, int64(1), gjson.Get(body, "staff_insights.needs_attention.#").Int())

	assert.Equal(t, int64(1), gjson.Get(body, "total_issues_in_period").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "issues_overview.unread").Int())
	require.Equal(t, int64(1), gjson.Get(body, "issues_overview.recent.#").Int())
	assert.Equal(t, "cold shower", gjson.Get(body, "issues_overview.recent.0.message").String())

	// The all period picks the old vote back up
	rec = doJSON(srv, http.MethodGet, "/api/admin/dashboard?period=all", fix.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Equal(t, "all", gjson.Get(body, "period").String())
	assert.Equal(t, int64(8), gjson.Get(body, "usage.total_feedback_in_period").Int())
	// The 7 day trend counter ignores the period filter
	assert.Equal(t, int64(7), gjson.Get(body, "usage.feedback_last_7_days").Int())
}

func TestVotesOverviewAndDetail(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	fix := seedStructure(t, srv, "Hotel Belvedere", "hotel-belvedere", "manager@belvedere.it")
	team := createTeam(t, srv.DB, fix.Structure.ID, "Reception", true)
	createVote(t, srv.DB, fix.Structure.ID, models.TeamTarget(team.ID), 1, time.Hour)
	createVote(t, srv.DB, fix.Structure.ID, models.TeamTarget(team.ID), 3, 2*time.Hour)

	rec := doJSON(srv, http.MethodGet, "/api/admin/votes/overview", fix.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, int64(2), gjson.Get(body, "total_votes").Int())
	assert.InDelta(t, 2.0, gjson.Get(body, "average_rating").Float(), 1e-9)
	require.Equal(t, int64(1), gjson.Get(body, "teams.#").Int())
	assert.Equal(t, "Reception", gjson.Get(body, "teams.0.name").String())

	rec = doJSON(srv, http.MethodGet, "/api/admin/votes/detail?type=team&id="+team.ID, fix.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	require.Equal(t, int64(2), gjson.Get(body, "votes.#").Int())
	// Newest first
	assert.Equal(t, int64(1), gjson.Get(body, "votes.0.rating").Int())
	assert.Equal(t, int64(3), gjson.Get(body, "votes.1.rating").Int())

	rec = doJSON(srv, http.MethodGet, "/api/admin/votes/detail?type=team&id=missing", fix.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(srv, http.MethodGet, "/api/admin/votes/detail?type=planet&id="+team.ID, fix.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTeamLifecycle(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	fix := seedStructure(t, srv, "Hotel Belvedere", "hotel-belvedere", "manager@belvedere.it")

	rec := doJSON(srv, http.MethodPost, "/api/admin/teams", fix.Token, map[string]any{"name": "Reception"})
	require.Equal(t, http.StatusCreated, rec.Code)
	teamID := gjson.Get(rec.Body.String(), "id").String()
	require.NotEmpty(t, teamID)

	rec = doJSON(srv, http.MethodPost, "/api/admin/teams", fix.Token, map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(srv, http.MethodPatch, "/api/admin/teams/"+teamID, fix.Token, map[string]any{"is_active": false})
	assert.Equal(t, http.StatusOK, rec.Code)

	var team models.Team
	require.NoError(t, srv.DB.First(&team, "id = ?", teamID).Error)
	assert.False(t, team.IsActive)

	// An empty patch is rejected instead of silently doing nothing
	rec = doJSON(srv, http.MethodPatch, "/api/admin/teams/"+teamID, fix.Token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Deleting takes the team's votes and employees along
	employee := createEmployee(t, srv.DB, fix.Structure.ID, teamID, "Anna", "Receptionist")
	createVote(t, srv.DB, fix.Structure.ID, models.TeamTarget(teamID), 2, 0)
	createVote(t, srv.DB, fix.Structure.ID, models.EmployeeTarget(employee.ID), 3, 0)

	rec = doJSON(srv, http.MethodDelete, "/api/admin/teams/"+teamID, fix.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var teams, employees, votes int64
	require.NoError(t, srv.DB.Model(&models.Team{}).Count(&teams).Error)
	require.NoError(t, srv.DB.Model(&models.Employee{}).Count(&employees).Error)
	require.NoError(t, srv.DB.Model(&models.Vote{}).Count(&votes).Error)
	assert.Zero(t, teams)
	assert.Zero(t, employees)
	assert.Zero(t, votes)
}

func TestEmployeeLifecycle(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	fix := seedStructure(t, srv, "Hotel Belvedere", "hotel-belvedere", "manager@belvedere.it")
	other := seedStructure(t, srv, "Hotel Paradiso", "hotel-paradiso", "manager@paradiso.it")
	team := createTeam(t, srv.DB, fix.Structure.ID, "Reception", true)
	foreignTeam := createTeam(t, srv.DB, other.Structure.ID, "Spa", true)

	rec := doJSON(srv, http.MethodPost, "/api/admin/employees", fix.Token, map[string]any{
		"team_id": team.ID,
		"name":    "Anna",
		"role":    "Receptionist",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	employeeID := gjson.Get(rec.Body.String(), "id").String()

	// A team of another structure cannot receive my employees
	rec = doJSON(srv, http.MethodPost, "/api/admin/employees", fix.Token, map[string]any{
		"team_id": foreignTeam.ID,
		"name":    "Mallory",
		"role":    "Spy",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(srv, http.MethodPatch, "/api/admin/employees/"+employeeID, fix.Token, map[string]any{"role": "Head Receptionist"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var employee models.Employee
	require.NoError(t, srv.DB.First(&employee, "id = ?", employeeID).Error)
	assert.Equal(t, "Head Receptionist", employee.Role)

	// Deleting an employee keeps the parent team's votes
	createVote(t, srv.DB, fix.Structure.ID, models.TeamTarget(team.ID), 2, 0)
	createVote(t, srv.DB, fix.Structure.ID, models.EmployeeTarget(employeeID), 1, 0)

	rec = doJSON(srv, http.MethodDelete, "/api/admin/employees/"+employeeID, fix.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var votes int64
	require.NoError(t, srv.DB.Model(&models.Vote{}).Count(&votes).Error)
	assert.Equal(t, int64(1), votes)
}

func TestIssueTriage(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	fix := seedStructure(t, srv, "Hotel Belvedere", "hotel-belvedere", "manager@belvedere.it")
	issue := &models.Issue{StructureID: fix.Structure.ID, Message: "cold shower"}
	require.NoError(t, srv.DB.Create(issue).Error)

	rec := doJSON(srv, http.MethodGet, "/api/admin/issues", fix.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(1), gjson.Get(rec.Body.String(), "issues.#").Int())
	assert.False(t, gjson.Get(rec.Body.String(), "issues.0.is_read").Bool())

	rec = doJSON(srv, http.MethodPatch, "/api/admin/issues/"+issue.ID, fix.Token, map[string]any{"is_read": true})
	assert.Equal(t, http.StatusOK, rec.Code)

	var reloaded models.Issue
	require.NoError(t, srv.DB.First(&reloaded, "id = ?", issue.ID).Error)
	assert.True(t, reloaded.IsRead)

	// Missing flag is rejected
	rec = doJSON(srv, http.MethodPatch, "/api/admin/issues/"+issue.ID, fix.Token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationEmails(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	fix := seedStructure(t, srv, "Hotel Belvedere", "hotel-belvedere", "manager@belvedere.it")

	rec := doJSON(srv, http.MethodPost, "/api/admin/notifications", fix.Token, map[string]any{"email": "alerts@belvedere.it"})
	require.Equal(t, http.StatusCreated, rec.Code)
	emailID := gjson.Get(rec.Body.String(), "id").String()

	rec = doJSON(srv, http.MethodPost, "/api/admin/notifications", fix.Token, map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Disposable addresses are refused
	rec = doJSON(srv, http.MethodPost, "/api/admin/notifications", fix.Token, map[string]any{"email": "x@mailinator.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(srv, http.MethodGet, "/api/admin/notifications", fix.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(1), gjson.Get(rec.Body.String(), "emails.#").Int())

	rec = doJSON(srv, http.MethodDelete, "/api/admin/notifications/"+emailID, fix.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(srv, http.MethodGet, "/api/admin/notifications", fix.Token, nil)
	assert.Equal(t, int64(0), gjson.Get(rec.Body.String(), "emails.#").Int())
}

func TestTenantIsolation(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	mine := seedStructure(t, srv, "Hotel Belvedere", "hotel-belvedere", "manager@belvedere.it")
	other := seedStructure(t, srv, "Hotel Paradiso", "hotel-paradiso", "manager@paradiso.it")
	foreignTeam := createTeam(t, srv.DB, other.Structure.ID, "Spa", true)
	foreignIssue := &models.Issue{StructureID: other.Structure.ID, Message: "their problem"}
	require.NoError(t, srv.DB.Create(foreignIssue).Error)

	// Another structure's rows read as missing, never as forbidden
	rec := doJSON(srv, http.MethodPatch, "/api/admin/teams/"+foreignTeam.ID, mine.Token, map[string]any{"name": "Hijacked"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(srv, http.MethodDelete, "/api/admin/teams/"+foreignTeam.ID, mine.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(srv, http.MethodPatch, "/api/admin/issues/"+foreignIssue.ID, mine.Token, map[string]any{"is_read": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// And the dashboard only ever counts my own rows
	rec = doJSON(srv, http.MethodGet, "/api/admin/dashboard", mine.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), gjson.Get(rec.Body.String(), "total_issues_in_period").Int())
}

func TestHealthEndpoint(t *testing.T) {
	srv, cleanup := setupTestServerFast(t)
	defer cleanup()

	rec := doJSON(srv, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
