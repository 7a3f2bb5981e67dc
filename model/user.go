package model

import (
	"time"

	"gorm.io/datatypes"
)

// User represents a registered user (student or staff)
type User struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Birthday     datatypes.Date `json:"birthday"`
	Phone        string         `gorm:"type:varchar(32)" json:"phone"`
	Address      string         `gorm:"type:text" json:"address"`

	// Relationships
	Registrations []CourseRegistration `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"registrations,omitempty"`
	Enrollments   []UserCourse         `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"enrollments,omitempty"`
	Roles         []UserRole           `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"roles,omitempty"`
}

func (User) TableName() string { return "users" }

// Role numbers used by the auth middleware
const (
	RoleAdmin   = 1
	RoleStudent = 2
)

// Role is a named permission level
type Role struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `gorm:"not null" json:"title"`
	Role        int       `gorm:"uniqueIndex;not null" json:"role"`
	Description string    `gorm:"type:text" json:"description"`

	Users []UserRole `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (Role) TableName() string { return "roles" }

// UserRole links a user to a role
type UserRole struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_role" json:"user_id"`
	RoleID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_role" json:"role_id"`

	Role *Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

func (UserRole) TableName() string { return "user_roles" }
