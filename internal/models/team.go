package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Team is a ratable department within a structure. The active flag only
// controls guest-facing visibility; historical votes keep counting.
type Team struct {
	ID          string     `json:"id" gorm:"unique;not null"`
	StructureID string     `gorm:"not null;index" json:"structure_id" validate:"required"`
	Name        string     `gorm:"not null" json:"name" validate:"required"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	Employees   []Employee `gorm:"foreignKey:TeamID" json:"employees,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (t *Team) BeforeCreate(tx *gorm.DB) (err error) {
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	t.ID = uuidV7.String()

	return
}

// GetTeamForStructure loads a team only if it belongs to the given
// structure. A team of another tenant is reported as not found.
func GetTeamForStructure(db *gorm.DB, teamID, structureID string) (*Team, error) {
	var team Team
	result := db.Where("id = ? AND structure_id = ?", teamID, structureID).First(&team)
	if result.Error != nil {
		return nil, result.Error
	}
	return &team, nil
}

// ListTeamsWithEmployees returns every team of the structure with its
// employees preloaded, both ordered by name for the admin views.
func ListTeamsWithEmployees(db *gorm.DB, structureID string) ([]Team, error) {
	var teams []Team
	err := db.
		Preload("Employees", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("employees.name ASC")
		}).
		Where("structure_id = ?", structureID).
		Order("name ASC").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// ListActiveTeamsWithActiveEmployees is the guest-facing projection: only
// active teams, each with only its active employees.
func ListActiveTeamsWithActiveEmployees(db *gorm.DB, structureID string) ([]Team, error) {
	var teams []Team
	err := db.
		Preload("Employees", "is_active = ?", true).
		Where("structure_id = ? AND is_active = ?", structureID, true).
		Order("name ASC").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// TeamNamesByID loads id -> name for the given team ids, scoped to one
// structure.
func TeamNamesByID(db *gorm.DB, structureID string, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var teams []Team
	if err := db.Select("id, name").
		Where("structure_id = ? AND id IN ?", structureID, ids).
		Find(&teams).Error; err != nil {
		return nil, err
	}
	for _, team := range teams {
		names[team.ID] = team.Name
	}
	return names, nil
}

// DeleteTeamCascade removes a team together with its employees, the
// employees' votes and the team's own votes, in one transaction.
func DeleteTeamCascade(db *gorm.DB, team *Team) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var employeeIDs []string
		if err := tx.Model(&Employee{}).
			Where("team_id = ?", team.ID).
			Pluck("id", &employeeIDs).Error; err != nil {
			return err
		}

		if len(employeeIDs) > 0 {
			if err := tx.Where("employee_id IN ?", employeeIDs).Delete(&Vote{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", employeeIDs).Delete(&Employee{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("team_id = ?", team.ID).Delete(&Vote{}).Error; err != nil {
			return err
		}

		return tx.Delete(team).Error
	})
}

// IsTeamNotFound reports whether err means the team does not exist for
// the caller's tenant.
func IsTeamNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
