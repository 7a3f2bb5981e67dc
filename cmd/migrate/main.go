package main

import (
	"log"

	"github.com/sahilchouksey/catalog-api/config"
	"github.com/sahilchouksey/catalog-api/database"
)

func main() {
	log.Println("=== GORM Migration ===")

	// Load environment variables
	if err := config.LoadENV(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Initialize GORM connection
	store, err := database.StartGORM()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer store.Close()

	// Run migrations
	if err := store.Init(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Health check
	if err := store.HealthCheck(); err != nil {
		log.Fatal("Database health check failed:", err)
	}

	log.Println("✅ All migrations completed successfully!")
	log.Println("Tables: users, roles, user_roles, curricula, faculties, courses,")
	log.Println("        course_requirements, course_registrations, user_courses, cron_job_logs")
}
