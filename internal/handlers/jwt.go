package handlers

import (
	"errors"
	"time"

	"guestpulse-backend/internal/common"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JwtAuth issues and verifies the bearer tokens the admin API uses.
type JwtAuth struct {
	Secret string
}

func NewJwtAuth(secret string) *JwtAuth {
	return &JwtAuth{Secret: secret}
}

// GenerateToken creates a signed token carrying the manager's email.
func (j *JwtAuth) GenerateToken(email string) (string, error) {
	claims := &common.JwtCustomClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.Secret))
}

// Middleware returns the echo-jwt middleware guarding the admin group.
func (j *JwtAuth) Middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(j.Secret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(common.JwtCustomClaims)
		},
	})
}

// GetManagerEmail extracts the email claim the middleware stored on the
// context.
func (j *JwtAuth) GetManagerEmail(c echo.Context) (string, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return "", errors.New("missing jwt token in context")
	}

	claims, ok := token.Claims.(*common.JwtCustomClaims)
	if !ok || claims.Email == "" {
		return "", errors.New("invalid jwt claims")
	}

	return claims.Email, nil
}
