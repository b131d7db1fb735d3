package email

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	resend "github.com/resend/resend-go/v2"
)

// IssueAlertData is the payload of one issue alert email.
type IssueAlertData struct {
	StructureName string
	Message       string
	GuestInfo     string
	CreatedAt     time.Time
}

// DeliveryResult reports the outcome for a single recipient. Callers
// decide whether any failure matters; the fan-out itself is best-effort.
type DeliveryResult struct {
	Recipient string
	Err       error
}

// EmailClient is an interface for sending issue alert emails.
type EmailClient interface {
	SendIssueAlert(recipients []string, data IssueAlertData) []DeliveryResult
}

// ResendEmailClient implements EmailClient using the Resend service
type ResendEmailClient struct {
	client        *resend.Client
	defaultSender string
	subject       string
	logger        echo.Logger
}

// NewResendEmailClient creates a new ResendEmailClient
func NewResendEmailClient(client *resend.Client, defaultSender, subject string, logger echo.Logger) *ResendEmailClient {
	return &ResendEmailClient{
		client:        client,
		defaultSender: defaultSender,
		subject:       subject,
		logger:        logger,
	}
}

// SendIssueAlert delivers one email per subscriber. Deliveries run
// concurrently and independently: one recipient failing never blocks or
// fails the others. Zero recipients is a normal outcome.
func (c *ResendEmailClient) SendIssueAlert(recipients []string, data IssueAlertData) []DeliveryResult {
	if len(recipients) == 0 {
		return nil
	}

	if c == nil || c.client == nil {
		c.logWarn("Resend client not initialized, skipping issue alert emails.")
		return nil
	}
	if c.defaultSender == "" {
		c.logWarn("Resend default sender not configured, skipping issue alert emails.")
		return nil
	}

	htmlBody, textBody := renderIssueAlert(data)

	results := FanOut(recipients, func(recipient string) error {
		params := &resend.SendEmailRequest{
			From:    c.defaultSender,
			To:      []string{recipient},
			Subject: c.subject,
			Html:    htmlBody,
			Text:    textBody,
		}
		_, err := c.client.Emails.Send(params)
		return err
	})

	for _, result := range results {
		if result.Err != nil {
			c.logger.Errorf("Failed to send issue alert to %s: %v", result.Recipient, result.Err)
		} else {
			c.logger.Infof("Issue alert sent to %s for structure %s", result.Recipient, data.StructureName)
		}
	}

	return results
}

func (c *ResendEmailClient) logWarn(msg string) {
	if c != nil && c.logger != nil {
		c.logger.Warn(msg)
	} else {
		fmt.Println(msg)
	}
}

// FanOut runs send once per recipient, all concurrently, and collects a
// result per recipient in input order.
func FanOut(recipients []string, send func(recipient string) error) []DeliveryResult {
	results := make([]DeliveryResult, len(recipients))

	var wg sync.WaitGroup
	for i, recipient := range recipients {
		wg.Add(1)
		go func(i int, recipient string) {
			defer wg.Done()
			results[i] = DeliveryResult{
				Recipient: recipient,
				Err:       send(recipient),
			}
		}(i, recipient)
	}
	wg.Wait()

	return results
}

// FailedDeliveries filters the fan-out output down to the failures.
func FailedDeliveries(results []DeliveryResult) []DeliveryResult {
	var failed []DeliveryResult
	for _, result := range results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}

func renderIssueAlert(data IssueAlertData) (htmlBody, textBody string) {
	guestInfo := data.GuestInfo
	if guestInfo == "" {
		guestInfo = "Not provided"
	}
	formattedDate := data.CreatedAt.Format("02/01/2006 15:04")

	htmlBody = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #111827;">
  <h2 style="color: #1E3A8A;">New issue reported by a guest</h2>
  <p><strong>Structure:</strong> %s</p>
  <p><strong>Message:</strong><br/>%s</p>
  <p><strong>Guest info:</strong> %s</p>
  <p><strong>Date:</strong> %s</p>
</div>`, html.EscapeString(data.StructureName), html.EscapeString(data.Message), html.EscapeString(guestInfo), formattedDate)

	textBody = strings.Join([]string{
		"New issue reported by a guest",
		"Structure: " + data.StructureName,
		"Message: " + data.Message,
		"Guest info: " + guestInfo,
		"Date: " + formattedDate,
	}, "\n")

	return htmlBody, textBody
}
