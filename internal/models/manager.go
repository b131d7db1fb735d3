package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Manager is the single admin account of one structure.
type Manager struct {
	ID             string    `json:"id" gorm:"unique;not null"`
	StructureID    string    `gorm:"not null;index" json:"structure_id" validate:"required"`
	Email          string    `gorm:"not null;unique" json:"email" validate:"required,email"`
	Password       string    `gorm:"-" json:"password,omitempty" validate:"required,min=8"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (m *Manager) BeforeCreate(tx *gorm.DB) (err error) {
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	m.ID = uuidV7.String()

	// Hash password if it's set
	if m.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(m.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		m.HashedPassword = string(hashedPassword)
		// Clear the plain text password
		m.Password = ""
	}

	return
}

func (m *Manager) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(m.HashedPassword), []byte(password))
	return err == nil
}

func GetManagerByEmail(db *gorm.DB, email string) (*Manager, error) {
	var manager Manager
	result := db.Where("email = ?", email).First(&manager)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.New("manager not found")
		}
		return nil, result.Error
	}
	return &manager, nil
}
