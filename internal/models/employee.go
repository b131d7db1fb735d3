package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Employee is an individually ratable staff member belonging to one team.
type Employee struct {
	ID          string    `json:"id" gorm:"unique;not null"`
	StructureID string    `gorm:"not null;index" json:"structure_id" validate:"required"`
	TeamID      string    `gorm:"not null;index" json:"team_id" validate:"required"`
	Name        string    `gorm:"not null" json:"name" validate:"required"`
	Role        string    `gorm:"not null" json:"role" validate:"required"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (e *Employee) BeforeCreate(tx *gorm.DB) (err error) {
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	e.ID = uuidV7.String()

	return
}

// GetEmployeeForStructure loads an employee only if it belongs to the
// given structure, so cross-tenant ids behave like missing ones.
func GetEmployeeForStructure(db *gorm.DB, employeeID, structureID string) (*Employee, error) {
	var employee Employee
	result := db.Where("id = ? AND structure_id = ?", employeeID, structureID).First(&employee)
	if result.Error != nil {
		return nil, result.Error
	}
	return &employee, nil
}

// EmployeesByID loads id -> employee for the given ids, scoped to one
// structure.
func EmployeesByID(db *gorm.DB, structureID string, ids []string) (map[string]Employee, error) {
	byID := make(map[string]Employee, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	var employees []Employee
	if err := db.Select("id, name, role, team_id").
		Where("structure_id = ? AND id IN ?", structureID, ids).
		Find(&employees).Error; err != nil {
		return nil, err
	}
	for _, employee := range employees {
		byID[employee.ID] = employee
	}
	return byID, nil
}

// DeleteEmployeeCascade removes an employee together with only that
// employee's votes. Votes attached to the parent team stay.
func DeleteEmployeeCascade(db *gorm.DB, employee *Employee) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", employee.ID).Delete(&Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(employee).Error
	})
}
