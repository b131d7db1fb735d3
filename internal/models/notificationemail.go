package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationEmail is a structure-scoped subscription. Only rows with
// NotifyIssues set receive issue alerts.
type NotificationEmail struct {
	ID           string    `json:"id" gorm:"unique;not null"`
	StructureID  string    `gorm:"not null;index" json:"structure_id"`
	Email        string    `gorm:"not null" json:"email" validate:"required,email"`
	NotifyIssues bool      `gorm:"default:true" json:"notify_issues"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (n *NotificationEmail) BeforeCreate(tx *gorm.DB) (err error) {
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	n.ID = uuidV7.String()

	return
}

// ListIssueSubscribers returns the active issue subscriptions of the
// structure, oldest first so the settings page order is stable.
func ListIssueSubscribers(db *gorm.DB, structureID string) ([]NotificationEmail, error) {
	var rows []NotificationEmail
	err := db.Where("structure_id = ? AND notify_issues = ?", structureID, true).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SubscriberAddresses returns just the addresses to fan an issue alert
// out to. An empty slice is a normal outcome, not an error.
func SubscriberAddresses(db *gorm.DB, structureID string) ([]string, error) {
	rows, err := ListIssueSubscribers(db, structureID)
	if err != nil {
		return nil, err
	}

	addresses := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Email != "" {
			addresses = append(addresses, row.Email)
		}
	}
	return addresses, nil
}

// GetNotificationEmailForStructure loads a subscription only if it
// belongs to the given structure.
func GetNotificationEmailForStructure(db *gorm.DB, id, structureID string) (*NotificationEmail, error) {
	var row NotificationEmail
	result := db.Where("id = ? AND structure_id = ?", id, structureID).First(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	return &row, nil
}
