package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"guestpulse-backend/internal/common"
	"guestpulse-backend/internal/config"
	"guestpulse-backend/internal/email"
	"guestpulse-backend/internal/models"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Minimum gap between two votes from the same browser session. Soft
// abuse guard, not a correctness mechanism.
const voteCooldown = 3 * time.Second

// How long a cached public structure payload stays fresh.
const structureCacheTTL = time.Minute

// GuestHandler serves the public QR endpoints: the structure page
// payload, vote submission and issue submission.
type GuestHandler struct {
	common.ServerState
}

func NewGuestHandler(db *gorm.DB, cfg *config.Config, redisClient *redis.Client, emailClient email.EmailClient) *GuestHandler {
	return &GuestHandler{
		ServerState: common.ServerState{
			DB:          db,
			Config:      cfg,
			Redis:       redisClient,
			EmailClient: emailClient,
		},
	}
}

type publicStructureResponse struct {
	Structure *models.Structure `json:"structure"`
	Teams     []models.Team     `json:"teams"`
}

// GetPublicStructure returns the guest page payload: the structure plus
// its active teams with active employees. The payload is cached in
// Redis per slug because every QR scan hits this endpoint.
func (h *GuestHandler) GetPublicStructure(c echo.Context) error {
	slug := c.Param("slug")
	if slug == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing structure slug")
	}

	cacheKey := "public-structure:" + slug
	if h.Redis != nil {
		cached, err := h.Redis.Get(c.Request().Context(), cacheKey).Result()
		if err == nil {
			return c.JSONBlob(http.StatusOK, []byte(cached))
		}
	}

	structure, err := models.GetStructureBySlug(h.DB, slug)
	if err != nil {
		if errors.Is(err, models.ErrStructureNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Structure not found")
		}
		c.Logger().Errorf("Failed to load structure %s: %v", slug, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load structure")
	}

	teams, err := models.ListActiveTeamsWithActiveEmployees(h.DB, structure.ID)
	if err != nil {
		c.Logger().Errorf("Failed to load teams for structure %s: %v", structure.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load structure")
	}

	response := publicStructureResponse{Structure: structure, Teams: teams}

	if h.Redis != nil {
		if payload, err := json.Marshal(response); err == nil {
			// Cache write failures only cost us the cache
			_ = h.Redis.Set(context.Background(), cacheKey, payload, structureCacheTTL).Err()
		}
	}

	return c.JSON(http.StatusOK, response)
}

type VoteRequest struct {
	StructureID string `json:"structure_id" validate:"required"`
	TeamID      string `json:"team_id"`
	EmployeeID  string `json:"employee_id"`
	Rating      int    `json:"rating"`
}

// SubmitVote records one guest rating. Exactly one of team_id and
// employee_id must be present, and the target must belong to the
// submitted structure or the request is treated as not found.
func (h *GuestHandler) SubmitVote(c echo.Context) error {
	req := new(VoteRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	hasTeam := req.TeamID != ""
	hasEmployee := req.EmployeeID != ""
	if hasTeam == hasEmployee {
		return echo.NewHTTPError(http.StatusBadRequest, "Provide either team_id or employee_id (exclusively)")
	}
	if req.Rating < models.RatingMin || req.Rating > models.RatingMax {
		return echo.NewHTTPError(http.StatusBadRequest, "Rating must be 1, 2 or 3")
	}

	if retryAfter, limited := h.voteCooldownActive(c); limited {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Please wait a moment before voting again").
			SetInternal(errors.New("vote cooldown, retry after " + retryAfter.String()))
	}

	if _, err := models.GetStructureByID(h.DB, req.StructureID); err != nil {
		if errors.Is(err, models.ErrStructureNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Structure not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save vote")
	}

	var target models.VoteTarget
	if hasTeam {
		if _, err := models.GetTeamForStructure(h.DB, req.TeamID, req.StructureID); err != nil {
			if models.IsTeamNotFound(err) {
				return echo.NewHTTPError(http.StatusNotFound, "Team not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save vote")
		}
		target = models.TeamTarget(req.TeamID)
	} else {
		if _, err := models.GetEmployeeForStructure(h.DB, req.EmployeeID, req.StructureID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "Employee not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save vote")
		}
		target = models.EmployeeTarget(req.EmployeeID)
	}

	vote, err := models.NewVote(req.StructureID, target, req.Rating)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.DB.Create(vote).Error; err != nil {
		c.Logger().Errorf("Failed to save vote: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save vote")
	}

	h.markVoteSubmitted(c)
	votesSubmitted.Inc()

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"id":      vote.ID,
	})
}

type IssueRequest struct {
	StructureID string `json:"structure_id" validate:"required"`
	Message     string `json:"message"`
	RoomOrName  string `json:"room_or_name"`
}

// SubmitIssue stores a guest report and fans an alert email out to the
// structure's subscribers. Delivery is best-effort: failures are logged
// and counted, the guest still gets success because the issue row is
// already persisted.
func (h *GuestHandler) SubmitIssue(c echo.Context) error {
	req := new(IssueRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Message cannot be empty")
	}
	if len([]rune(message)) > h.Config.Issues.MaxMessageLength {
		return echo.NewHTTPError(http.StatusBadRequest, "Message exceeds the character limit")
	}

	structure, err := models.GetStructureByID(h.DB, req.StructureID)
	if err != nil {
		if errors.Is(err, models.ErrStructureNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Structure not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to send issue")
	}

	issue := &models.Issue{
		StructureID: structure.ID,
		Message:     message,
	}
	if req.RoomOrName != "" {
		roomOrName := req.RoomOrName
		issue.RoomOrName = &roomOrName
	}

	if err := h.DB.Create(issue).Error; err != nil {
		c.Logger().Errorf("Failed to save issue: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to send issue")
	}

	issuesSubmitted.Inc()

	recipients, err := models.SubscriberAddresses(h.DB, structure.ID)
	if err != nil {
		// The issue is persisted; losing the alert is logged, not fatal.
		c.Logger().Errorf("Failed to load notification emails for structure %s: %v", structure.ID, err)
		recipients = nil
	}

	if len(recipients) == 0 {
		c.Logger().Infof("No notification emails configured for structure %s", structure.ID)
	} else if h.EmailClient != nil {
		results := h.EmailClient.SendIssueAlert(recipients, email.IssueAlertData{
			StructureName: structure.Name,
			Message:       message,
			GuestInfo:     req.RoomOrName,
			CreatedAt:     issue.CreatedAt,
		})
		for range email.FailedDeliveries(results) {
			issueEmailFailures.Inc()
		}
	}

	return c.JSON(http.StatusCreated, map[string]any{"success": true})
}

// voteCooldownActive checks the session for a recent vote timestamp. A
// missing or broken session never blocks the vote.
func (h *GuestHandler) voteCooldownActive(c echo.Context) (time.Duration, bool) {
	sess, err := session.Get("session", c)
	if err != nil {
		return 0, false
	}

	raw, ok := sess.Values["last_vote_at"].(int64)
	if !ok {
		return 0, false
	}

	elapsed := time.Since(time.Unix(raw, 0))
	if elapsed < voteCooldown {
		return voteCooldown - elapsed, true
	}
	return 0, false
}

func (h *GuestHandler) markVoteSubmitted(c echo.Context) {
	sess, err := session.Get("session", c)
	if err != nil {
		return
	}
	sess.Values["last_vote_at"] = time.Now().Unix()
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		c.Logger().Warnf("Failed to save session: %v", err)
	}
}
