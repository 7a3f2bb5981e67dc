package model

import "time"

// Curriculum is the top of the catalog hierarchy (e.g. "Software Engineering 2025")
type Curriculum struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Title         string    `gorm:"not null" json:"title"`
	Code          string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Description   string    `gorm:"type:text" json:"description"`
	DurationStart time.Time `json:"duration_start"`
	DurationEnd   time.Time `json:"duration_end"`

	// Relationships
	Faculties []Faculty `gorm:"foreignKey:CurriculumID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"faculties,omitempty"`
}

func (Curriculum) TableName() string { return "curricula" }

// Faculty groups courses inside a curriculum
type Faculty struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CurriculumID  string    `gorm:"type:varchar(36);not null;index" json:"curriculum_id"`
	Title         string    `gorm:"not null" json:"title"`
	Code          string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Description   string    `gorm:"type:text" json:"description"`
	DurationStart time.Time `json:"duration_start"`
	DurationEnd   time.Time `json:"duration_end"`
	ThumbnailURL  string    `gorm:"type:varchar(512)" json:"thumbnail_url"`

	// Relationships
	Courses []Course `gorm:"foreignKey:FacultyID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"courses,omitempty"`
}

func (Faculty) TableName() string { return "faculties" }
