package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ratings guests can pick on the public page.
const (
	RatingMin = 1
	RatingMax = 3
)

// Vote is one immutable guest rating event, attached to exactly one team
// or exactly one employee, never both.
type Vote struct {
	ID          string    `json:"id" gorm:"unique;not null"`
	StructureID string    `gorm:"not null;index" json:"structure_id"`
	TeamID      *string   `gorm:"index" json:"team_id,omitempty"`
	EmployeeID  *string   `gorm:"index" json:"employee_id,omitempty"`
	Rating      int       `gorm:"not null" json:"rating"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	ErrInvalidRating     = errors.New("rating must be 1, 2 or 3")
	ErrInvalidVoteTarget = errors.New("vote needs exactly one of team or employee")
)

// VoteTarget is the tagged variant for the team-XOR-employee invariant.
// Constructing one always yields a valid target, so the invalid "both"
// and "neither" states cannot be represented by callers.
type VoteTarget struct {
	teamID     string
	employeeID string
}

func TeamTarget(teamID string) VoteTarget {
	return VoteTarget{teamID: teamID}
}

func EmployeeTarget(employeeID string) VoteTarget {
	return VoteTarget{employeeID: employeeID}
}

func (t VoteTarget) IsTeam() bool { return t.teamID != "" }

func (t VoteTarget) ID() string {
	if t.teamID != "" {
		return t.teamID
	}
	return t.employeeID
}

func (t VoteTarget) valid() bool {
	return (t.teamID != "") != (t.employeeID != "")
}

// NewVote builds a vote for one structure, one target and one rating.
func NewVote(structureID string, target VoteTarget, rating int) (*Vote, error) {
	if rating < RatingMin || rating > RatingMax {
		return nil, ErrInvalidRating
	}
	if !target.valid() {
		return nil, ErrInvalidVoteTarget
	}

	vote := &Vote{
		StructureID: structureID,
		Rating:      rating,
	}
	if target.IsTeam() {
		teamID := target.teamID
		vote.TeamID = &teamID
	} else {
		employeeID := target.employeeID
		vote.EmployeeID = &employeeID
	}
	return vote, nil
}

func (v *Vote) BeforeCreate(tx *gorm.DB) (err error) {
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	v.ID = uuidV7.String()

	// Last line of defense for rows built without NewVote.
	if v.Rating < RatingMin || v.Rating > RatingMax {
		return ErrInvalidRating
	}
	hasTeam := v.TeamID != nil && *v.TeamID != ""
	hasEmployee := v.EmployeeID != nil && *v.EmployeeID != ""
	if hasTeam == hasEmployee {
		return ErrInvalidVoteTarget
	}

	return
}

// VotesSince returns the structure's votes at or after the optional
// cutoff, newest first. The descending order is what the aggregation
// fold's "first seen wins" rule relies on.
func VotesSince(db *gorm.DB, structureID string, since *time.Time) ([]Vote, error) {
	query := db.Where("structure_id = ?", structureID)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var votes []Vote
	if err := query.Order("created_at DESC").Find(&votes).Error; err != nil {
		return nil, err
	}
	return votes, nil
}

// CountVotesSince counts the structure's votes at or after the optional
// cutoff.
func CountVotesSince(db *gorm.DB, structureID string, since *time.Time) (int64, error) {
	query := db.Model(&Vote{}).Where("structure_id = ?", structureID)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// RecentVotesForTarget returns the newest raw votes of one team or one
// employee for the admin detail modal.
func RecentVotesForTarget(db *gorm.DB, structureID string, target VoteTarget, limit int) ([]Vote, error) {
	query := db.Where("structure_id = ?", structureID)
	if target.IsTeam() {
		query = query.Where("team_id = ?", target.ID())
	} else {
		query = query.Where("employee_id = ?", target.ID())
	}

	var votes []Vote
	if err := query.Order("created_at DESC").Limit(limit).Find(&votes).Error; err != nil {
		return nil, err
	}
	return votes, nil
}
