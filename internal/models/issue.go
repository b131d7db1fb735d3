package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Issue is a guest-submitted report. Only the is_read flag ever changes
// after creation, toggled by managers during triage.
type Issue struct {
	ID          string    `json:"id" gorm:"unique;not null"`
	StructureID string    `gorm:"not null;index" json:"structure_id"`
	Message     string    `gorm:"not null" json:"message"`
	RoomOrName  *string   `json:"room_or_name,omitempty"`
	IsRead      bool      `gorm:"default:false" json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (i *Issue) BeforeCreate(tx *gorm.DB) (err error) {
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	i.ID = uuidV7.String()

	return
}

// ListIssues returns every issue of the structure, newest first.
func ListIssues(db *gorm.DB, structureID string) ([]Issue, error) {
	var issues []Issue
	err := db.Where("structure_id = ?", structureID).
		Order("created_at DESC").
		Find(&issues).Error
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// RecentIssues returns the newest issues of the structure, bounded for
// the dashboard preview.
func RecentIssues(db *gorm.DB, structureID string, limit int) ([]Issue, error) {
	var issues []Issue
	err := db.Where("structure_id = ?", structureID).
		Order("created_at DESC").
		Limit(limit).
		Find(&issues).Error
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// CountIssuesSince counts the structure's issues at or after the
// optional cutoff.
func CountIssuesSince(db *gorm.DB, structureID string, since *time.Time) (int64, error) {
	query := db.Model(&Issue{}).Where("structure_id = ?", structureID)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountUnreadIssues counts unread issues structure-wide. Unread status is
// deliberately not period-filtered.
func CountUnreadIssues(db *gorm.DB, structureID string) (int64, error) {
	var count int64
	err := db.Model(&Issue{}).
		Where("structure_id = ? AND is_read = ?", structureID, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetIssueForStructure loads an issue only if it belongs to the given
// structure.
func GetIssueForStructure(db *gorm.DB, issueID, structureID string) (*Issue, error) {
	var issue Issue
	result := db.Where("id = ? AND structure_id = ?", issueID, structureID).First(&issue)
	if result.Error != nil {
		return nil, result.Error
	}
	return &issue, nil
}

// SetRead toggles the manager-facing read flag.
func (i *Issue) SetRead(db *gorm.DB, isRead bool) error {
	i.IsRead = isRead
	return db.Model(i).Update("is_read", isRead).Error
}
