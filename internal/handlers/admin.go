package handlers

import (
	"errors"
	"net/http"
	"strings"

	"guestpulse-backend/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/lindell/go-burner-email-providers/burner"
	"gorm.io/gorm"
)

// ListTeams returns every team of the manager's structure with its
// employees, for the team management page.
func (h *AdminHandler) ListTeams(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	teams, err := models.ListTeamsWithEmployees(h.DB, structure.ID)
	if err != nil {
		c.Logger().Errorf("Failed to list teams for structure %s: %v", structure.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load teams")
	}

	return c.JSON(http.StatusOK, map[string]any{"teams": teams})
}

// CreateTeam adds a team to the manager's structure.
func (h *AdminHandler) CreateTeam(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Team name is required")
	}

	team := models.Team{
		StructureID: structure.ID,
		Name:        name,
		IsActive:    true,
	}
	if err := h.DB.Create(&team).Error; err != nil {
		c.Logger().Errorf("Failed to create team: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create team")
	}

	return c.JSON(http.StatusCreated, team)
}

// UpdateTeam renames a team and/or toggles its guest-facing visibility.
func (h *AdminHandler) UpdateTeam(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	team, err := models.GetTeamForStructure(h.DB, c.Param("id"), structure.ID)
	if err != nil {
		if models.IsTeamNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "Team not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load team")
	}

	var req struct {
		Name     *string `json:"name"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updates := map[string]any{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No changes requested")
	}

	if err := h.DB.Model(team).Updates(updates).Error; err != nil {
		c.Logger().Errorf("Failed to update team %s: %v", team.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update team")
	}

	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// DeleteTeam removes a team with its employees and every vote either of
// them collected.
func (h *AdminHandler) DeleteTeam(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	team, err := models.GetTeamForStructure(h.DB, c.Param("id"), structure.ID)
	if err != nil {
		if models.IsTeamNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "Team not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load team")
	}

	if err := models.DeleteTeamCascade(h.DB, team); err != nil {
		c.Logger().Errorf("Failed to delete team %s: %v", team.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete team")
	}

	return c.NoContent(http.StatusNoContent)
}

// CreateEmployee adds a staff member to one of the structure's teams.
func (h *AdminHandler) CreateEmployee(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	var req struct {
		TeamID string `json:"team_id"`
		Name   string `json:"name"`
		Role   string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	name := strings.TrimSpace(req.Name)
	role := strings.TrimSpace(req.Role)
	if req.TeamID == "" || name == "" || role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Team, name and role are required")
	}

	if _, err := models.GetTeamForStructure(h.DB, req.TeamID, structure.ID); err != nil {
		if models.IsTeamNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "The selected team is not valid")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create employee")
	}

	employee := models.Employee{
		StructureID: structure.ID,
		TeamID:      req.TeamID,
		Name:        name,
		Role:        role,
		IsActive:    true,
	}
	if err := h.DB.Create(&employee).Error; err != nil {
		c.Logger().Errorf("Failed to create employee: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create employee")
	}

	return c.JSON(http.StatusCreated, employee)
}

// UpdateEmployee edits name, role or visibility of a staff member.
func (h *AdminHandler) UpdateEmployee(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	employee, err := models.GetEmployeeForStructure(h.DB, c.Param("id"), structure.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Employee not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load employee")
	}

	var req struct {
		Name     *string `json:"name"`
		Role     *string `json:"role"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updates := map[string]any{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil && strings.TrimSpace(*req.Role) != "" {
		updates["role"] = strings.TrimSpace(*req.Role)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No changes requested")
	}

	if err := h.DB.Model(employee).Updates(updates).Error; err != nil {
		c.Logger().Errorf("Failed to update employee %s: %v", employee.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update employee")
	}

	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// DeleteEmployee removes a staff member and only that member's votes.
func (h *AdminHandler) DeleteEmployee(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	employee, err := models.GetEmployeeForStructure(h.DB, c.Param("id"), structure.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Employee not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load employee")
	}

	if err := models.DeleteEmployeeCascade(h.DB, employee); err != nil {
		c.Logger().Errorf("Failed to delete employee %s: %v", employee.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete employee")
	}

	return c.NoContent(http.StatusNoContent)
}

// ListIssues returns every issue of the structure, newest first, for the
// triage page.
func (h *AdminHandler) ListIssues(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	issues, err := models.ListIssues(h.DB, structure.ID)
	if err != nil {
		c.Logger().Errorf("Failed to list issues for structure %s: %v", structure.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load issues")
	}

	return c.JSON(http.StatusOK, map[string]any{"issues": issues})
}

// SetIssueRead toggles the read flag of one issue.
func (h *AdminHandler) SetIssueRead(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	issue, err := models.GetIssueForStructure(h.DB, c.Param("id"), structure.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Issue not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load issue")
	}

	var req struct {
		IsRead *bool `json:"is_read"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.IsRead == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "is_read is required")
	}

	if err := issue.SetRead(h.DB, *req.IsRead); err != nil {
		c.Logger().Errorf("Failed to update issue %s: %v", issue.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update issue")
	}

	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// ListNotificationEmails returns the structure's active issue
// subscribers.
func (h *AdminHandler) ListNotificationEmails(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	rows, err := models.ListIssueSubscribers(h.DB, structure.ID)
	if err != nil {
		c.Logger().Errorf("Failed to list notification emails for structure %s: %v", structure.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load notification emails")
	}

	return c.JSON(http.StatusOK, map[string]any{"emails": rows})
}

type notificationEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CreateNotificationEmail subscribes an address to issue alerts.
// Disposable addresses are rejected; alerts to them bounce into a void.
func (h *AdminHandler) CreateNotificationEmail(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	req := new(notificationEmailRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Enter a valid email address")
	}

	address := strings.TrimSpace(req.Email)
	if burner.IsBurnerEmail(address) {
		return echo.NewHTTPError(http.StatusBadRequest, "Temporary email addresses are not allowed")
	}

	row := models.NotificationEmail{
		StructureID:  structure.ID,
		Email:        address,
		NotifyIssues: true,
	}
	if err := h.DB.Create(&row).Error; err != nil {
		c.Logger().Errorf("Failed to create notification email: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save the email address")
	}

	return c.JSON(http.StatusCreated, row)
}

// DeleteNotificationEmail removes a subscription.
func (h *AdminHandler) DeleteNotificationEmail(c echo.Context) error {
	_, structure, ok := h.requireManagerContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	row, err := models.GetNotificationEmailForStructure(h.DB, c.Param("id"), structure.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Email not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load the email address")
	}

	if err := h.DB.Delete(row).Error; err != nil {
		c.Logger().Errorf("Failed to delete notification email %s: %v", row.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete the email address")
	}

	return c.NoContent(http.StatusNoContent)
}
