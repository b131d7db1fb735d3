package handlers

import (
	"net/http"

	"guestpulse-backend/internal/common"
	"guestpulse-backend/internal/config"
	"guestpulse-backend/internal/models"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// AdminHandler serves the manager-facing API: sign-in, dashboard
// aggregates and the CRUD around teams, employees, issues and
// notification emails.
type AdminHandler struct {
	common.ServerState
}

func NewAdminHandler(db *gorm.DB, cfg *config.Config, jwt common.JWTIssuer) *AdminHandler {
	return &AdminHandler{
		ServerState: common.ServerState{
			DB:        db,
			Config:    cfg,
			JwtIssuer: jwt,
		},
	}
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignIn authenticates a manager and hands back a bearer token for the
// admin API.
func (h *AdminHandler) SignIn(c echo.Context) error {
	c.Logger().Info("Received manager sign-in request")
	req := &SignInRequest{}

	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	manager, err := models.GetManagerByEmail(h.DB, req.Email)
	if err != nil || !manager.CheckPassword(req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	token, err := h.JwtIssuer.GenerateToken(manager.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// requireManagerContext resolves the authenticated manager and the
// structure they manage. Every admin query below is scoped to that
// structure's id.
func (h *AdminHandler) requireManagerContext(c echo.Context) (*models.Manager, *models.Structure, bool) {
	email, err := h.JwtIssuer.GetManagerEmail(c)
	if err != nil {
		return nil, nil, false
	}

	manager, err := models.GetManagerByEmail(h.DB, email)
	if err != nil {
		return nil, nil, false
	}

	structure, err := models.GetStructureByID(h.DB, manager.StructureID)
	if err != nil {
		return nil, nil, false
	}

	return manager, structure, true
}
