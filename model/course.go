package model

import "time"

// Course is an offering inside a faculty. A course with zero Quantity accepts
// no new registrations.
type Course struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	FacultyID     string    `gorm:"type:varchar(36);not null;index" json:"faculty_id"`
	Title         string    `gorm:"not null" json:"title"`
	Code          string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Description   string    `gorm:"type:text" json:"description"`
	DurationStart time.Time `json:"duration_start"`
	DurationEnd   time.Time `json:"duration_end"`
	Quantity      int       `gorm:"default:0" json:"quantity"`

	// Relationships
	Requirements  []CourseRequirement  `gorm:"foreignKey:CourseID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"requirements,omitempty"`
	Registrations []CourseRegistration `gorm:"foreignKey:CourseID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Enrollments   []UserCourse         `gorm:"foreignKey:CourseID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (Course) TableName() string { return "courses" }

// CourseRequirement is a prerequisite or condition attached to a course
type CourseRequirement struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CourseID    string    `gorm:"type:varchar(36);not null;index" json:"course_id"`
	Title       string    `gorm:"not null" json:"title"`
	Code        string    `gorm:"type:varchar(50)" json:"code"`
	Description string    `gorm:"type:text" json:"description"`
}

func (CourseRequirement) TableName() string { return "course_requirements" }
