package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sahilchouksey/catalog-api/database"
	"github.com/sahilchouksey/catalog-api/services"
	"github.com/sahilchouksey/catalog-api/utils/auth"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Initialize database connection using GORM
	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("Catalog API - Database Seeding")
	fmt.Println(separator)
	fmt.Println()

	seeder := database.NewSeeder(store.GetDB())
	if err := seeder.SeedRoles(); err != nil {
		log.Fatalf("❌ Seeding roles failed: %v", err)
	}
	admin, err := seeder.SeedAdminUser(os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD"))
	if err != nil {
		log.Fatalf("❌ Seeding admin user failed: %v", err)
	}
	if err := seeder.SeedCatalog(); err != nil {
		log.Fatalf("❌ Seeding catalog failed: %v", err)
	}

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("🎉 Seeding completed successfully!")
	fmt.Println(separator)
	fmt.Println()

	if admin == nil {
		fmt.Println("Admin user is created from ADMIN_EMAIL and ADMIN_PASSWORD environment variables.")
		fmt.Println("They were not set, so admin user creation was skipped.")
		return
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return
	}
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "catalog-api"
	}

	// Reload with roles so the token carries them
	if err := store.GetDB().Preload("Roles.Role").First(admin, "id = ?", admin.ID).Error; err != nil {
		log.Fatalf("Failed to load admin roles: %v", err)
	}
	token, _, err := auth.NewJWTManager(auth.JWTConfig{Secret: secret, Issuer: issuer}).
		GenerateAccessToken(admin.ID, admin.Email, services.RoleNumbers(admin))
	if err != nil {
		log.Fatalf("Failed to generate admin token: %v", err)
	}
	fmt.Println("Admin access token (valid 24h):")
	fmt.Println(token)
}
