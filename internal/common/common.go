package common

import (
	"guestpulse-backend/internal/config"
	"guestpulse-backend/internal/email"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/wader/gormstore/v2"
	"gorm.io/gorm"
)

type JwtCustomClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type JWTIssuer interface {
	GenerateToken(email string) (string, error)
	Middleware() echo.MiddlewareFunc
	GetManagerEmail(c echo.Context) (string, error)
}

type ServerState struct {
	Echo        *echo.Echo
	Config      *config.Config
	DB          *gorm.DB
	Store       *gormstore.Store
	JwtIssuer   JWTIssuer
	Redis       *redis.Client
	EmailClient email.EmailClient
}
