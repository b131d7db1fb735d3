package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Port string
		Host string
		TLS  struct {
			Enabled  bool
			CertFile string
			KeyFile  string
		}
		DeployDomain string
		Debug        bool
	}
	Auth struct {
		SessionSecret string
	}
	Database struct {
		DSN      string
		RedisURI string
	}
	Resend struct {
		APIKey        string
		DefaultSender string
		IssueSubject  string
	}
	Sentry struct {
		DSN string
	}
	Dashboard struct {
		// Minimum feedback count before an employee shows up in the
		// top / needs-attention lists.
		MinStaffFeedback int
		// Entries kept in each staff insight list.
		StaffListSize int
		// Recent issues shown on the dashboard overview.
		RecentIssuesLimit int
		// Rune budget for the issue preview projection.
		IssuePreviewLength int
	}
	Issues struct {
		MaxMessageLength int
	}
}

func Load() (*Config, error) {

	envStack := os.Getenv("ENV_STACK")

	if envStack != "" {
		filePath := "./env-files/.env." + envStack
		err := godotenv.Load(filePath)
		if err != nil {
			fmt.Printf("Error loading .env file: %s\n", err)
		}
	}

	c := &Config{}

	c.Server.Port = os.Getenv("SERVER_PORT")
	if c.Server.Port == "" {
		c.Server.Port = "1926"
	}

	c.Server.Host = os.Getenv("SERVER_HOST")
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}

	c.Server.DeployDomain = os.Getenv("DEPLOY_DOMAIN")
	if c.Server.DeployDomain == "" {
		c.Server.DeployDomain = c.Server.Host + ":" + c.Server.Port
	}

	c.Server.Debug = os.Getenv("ENABLE_DEBUG_ENDPOINTS") == "true"

	useTLS := os.Getenv("USE_TLS")
	c.Server.TLS.Enabled = useTLS != "false" && useTLS != "0"
	c.Server.TLS.CertFile = "./certs/localhost.pem"
	c.Server.TLS.KeyFile = "./certs/localhost-key.pem"

	c.Auth.SessionSecret = os.Getenv("SESSION_SECRET")

	c.Database.DSN = os.Getenv("DATABASE_DSN")
	c.Database.RedisURI = os.Getenv("REDIS_URI")

	c.Resend.APIKey = os.Getenv("RESEND_API_KEY")
	c.Resend.DefaultSender = os.Getenv("RESEND_DEFAULT_SENDER")
	if c.Resend.DefaultSender == "" {
		c.Resend.DefaultSender = "noreply@guestpulse.app"
	}
	c.Resend.IssueSubject = os.Getenv("EMAIL_SUBJECT_ISSUE")
	if c.Resend.IssueSubject == "" {
		c.Resend.IssueSubject = "New issue reported by a guest"
	}

	c.Sentry.DSN = os.Getenv("SENTRY_DSN")

	c.Dashboard.MinStaffFeedback = intFromEnv("DASHBOARD_MIN_STAFF_FEEDBACK", 3)
	c.Dashboard.StaffListSize = intFromEnv("DASHBOARD_STAFF_LIST_SIZE", 5)
	c.Dashboard.RecentIssuesLimit = intFromEnv("DASHBOARD_RECENT_ISSUES_LIMIT", 5)
	c.Dashboard.IssuePreviewLength = intFromEnv("DASHBOARD_ISSUE_PREVIEW_LENGTH", 80)

	c.Issues.MaxMessageLength = intFromEnv("ISSUE_MAX_MESSAGE_LENGTH", 140)

	return c, nil
}

func intFromEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		fmt.Printf("WARNING: %s must be a positive integer, got %q, using %d\n", key, raw, fallback)
		return fallback
	}
	return value
}
