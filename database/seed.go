package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/catalog-api/model"
	"github.com/sahilchouksey/catalog-api/utils/auth"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	// Run seeds in order (respecting foreign key constraints)
	if err := s.SeedRoles(); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}

	if _, err := s.SeedAdminUser(os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedCatalog(); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedRoles creates the admin and student roles
func (s *Seeder) SeedRoles() error {
	roles := []model.Role{
		{Title: "Admin", Role: model.RoleAdmin, Description: "Manages the catalog"},
		{Title: "Student", Role: model.RoleStudent, Description: "Registers for courses"},
	}

	for _, r := range roles {
		var count int64
		if err := s.db.Model(&model.Role{}).Where("role = ?", r.Role).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			log.Printf("⏭️  Role %s already exists, skipping...\n", r.Title)
			continue
		}

		r.ID = uuid.NewString()
		if err := s.db.Create(&r).Error; err != nil {
			return err
		}
		log.Printf("✅ Created role: %s\n", r.Title)
	}
	return nil
}

// SeedAdminUser creates the default admin user and returns it. It returns
// nil when credentials are missing.
func (s *Seeder) SeedAdminUser(email, password string) (*model.User, error) {
	if email == "" || password == "" {
		log.Println("⚠️  ADMIN_EMAIL and ADMIN_PASSWORD environment variables not set, skipping admin user creation")
		return nil, nil
	}

	// Check if admin already exists
	var existing model.User
	err := s.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		log.Println("⏭️  Admin user already exists, skipping...")
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var role model.Role
	if err := s.db.Where("role = ?", model.RoleAdmin).First(&role).Error; err != nil {
		return nil, fmt.Errorf("admin role missing: %w", err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         "System Administrator",
		Roles:        []model.UserRole{{ID: uuid.NewString(), RoleID: role.ID}},
	}

	if err := s.db.Create(admin).Error; err != nil {
		return nil, err
	}

	log.Printf("✅ Created admin user: %s\n", admin.Email)
	return admin, nil
}

// SeedCatalog creates a sample curriculum with two faculties
func (s *Seeder) SeedCatalog() error {
	var count int64
	if err := s.db.Model(&model.Curriculum{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Curricula already exist, skipping...")
		return nil
	}

	start := time.Date(time.Now().Year(), time.September, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	course := func(code, title string, quantity int, reqs ...string) model.Course {
		c := model.Course{
			ID:            uuid.NewString(),
			Code:          code,
			Title:         title,
			DurationStart: start,
			DurationEnd:   end,
			Quantity:      quantity,
		}
		for i, r := range reqs {
			c.Requirements = append(c.Requirements, model.CourseRequirement{
				ID:    uuid.NewString(),
				Code:  fmt.Sprintf("%s-R%d", code, i+1),
				Title: r,
			})
		}
		return c
	}

	curriculum := &model.Curriculum{
		ID:            uuid.NewString(),
		Title:         "Computer Science",
		Code:          "CS",
		Description:   "Undergraduate computer science programme",
		DurationStart: start,
		DurationEnd:   end,
		Faculties: []model.Faculty{
			{
				ID:            uuid.NewString(),
				Title:         "Software Engineering",
				Code:          "CS-SE",
				DurationStart: start,
				DurationEnd:   end,
				Courses: []model.Course{
					course("CS-SE-101", "Programming Fundamentals", 60),
					course("CS-SE-201", "Data Structures", 40, "Programming Fundamentals"),
					course("CS-SE-301", "Distributed Systems", 25, "Data Structures", "Operating Systems"),
				},
			},
			{
				ID:            uuid.NewString(),
				Title:         "Information Systems",
				Code:          "CS-IS",
				DurationStart: start,
				DurationEnd:   end,
				Courses: []model.Course{
					course("CS-IS-101", "Databases", 50),
					course("CS-IS-201", "Data Warehousing", 0, "Databases"),
				},
			},
		},
	}

	if err := s.db.Create(curriculum).Error; err != nil {
		return err
	}

	log.Printf("✅ Created curriculum %s with %d faculties\n", curriculum.Code, len(curriculum.Faculties))
	return nil
}

// RunSeeds is a convenience function to run all seeds
func RunSeeds(db *gorm.DB) error {
	seeder := NewSeeder(db)
	return seeder.SeedAll()
}
