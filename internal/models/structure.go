package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Structure is the tenant root: one hotel/venue whose teams, employees,
// votes and issues are isolated from every other structure.
type Structure struct {
	ID        string    `json:"id" gorm:"unique;not null"`
	Name      string    `gorm:"not null" json:"name" validate:"required"`
	Slug      string    `gorm:"not null;unique;index" json:"slug" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Structure) BeforeCreate(tx *gorm.DB) (err error) {
	// Using uuid v7 to be indexable with B-tree
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	s.ID = uuidV7.String()

	return
}

var ErrStructureNotFound = errors.New("structure not found")

// GetStructureBySlug resolves the public URL key guests land on after
// scanning a QR code.
func GetStructureBySlug(db *gorm.DB, slug string) (*Structure, error) {
	var structure Structure
	result := db.Where("slug = ?", slug).First(&structure)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrStructureNotFound
		}
		return nil, result.Error
	}
	return &structure, nil
}

func GetStructureByID(db *gorm.DB, id string) (*Structure, error) {
	var structure Structure
	result := db.Where("id = ?", id).First(&structure)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrStructureNotFound
		}
		return nil, result.Error
	}
	return &structure, nil
}
