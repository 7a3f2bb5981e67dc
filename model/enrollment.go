package model

import "time"

// EnrollmentStatus tracks a user's progress through an enrolled course
type EnrollmentStatus int

const (
	EnrollmentPending EnrollmentStatus = iota
	EnrollmentProcessing
	EnrollmentCompleted
)

func (s EnrollmentStatus) String() string {
	switch s {
	case EnrollmentPending:
		return "pending"
	case EnrollmentProcessing:
		return "processing"
	case EnrollmentCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// CourseRegistration is a pending enrollment request. It disappears when an
// admin approves it (becoming a UserCourse) or rejects it.
type CourseRegistration struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	CourseID  string    `gorm:"type:varchar(36);not null;index" json:"course_id"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (CourseRegistration) TableName() string { return "course_registrations" }

// UserCourse is an enrollment of a user in a course
type UserCourse struct {
	ID        string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	UserID    string           `gorm:"type:varchar(36);not null;index" json:"user_id"`
	CourseID  string           `gorm:"type:varchar(36);not null;index" json:"course_id"`
	Status    EnrollmentStatus `gorm:"not null;default:0" json:"status"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (UserCourse) TableName() string { return "user_courses" }
