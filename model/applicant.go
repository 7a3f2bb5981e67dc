package model

import (
	"time"

	"gorm.io/datatypes"
)

// Applicant is an admission application. Upgrading it creates a student
// account and removes the application.
type Applicant struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Name      string         `gorm:"not null" json:"name"`
	Birthday  datatypes.Date `json:"birthday"`
	Phone     string         `gorm:"type:varchar(32)" json:"phone"`
	Gender    string         `gorm:"type:varchar(16)" json:"gender"`
	Address   string         `gorm:"type:text" json:"address"`
}

func (Applicant) TableName() string { return "applicants" }
