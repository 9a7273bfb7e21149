//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/auth"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/database"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
	"github.com/James-Kabz/CLIENT-PORTAL/pkg/config"
	"github.com/James-Kabz/CLIENT-PORTAL/pkg/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")

	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "Admin1234!"
	}
	if name == "" {
		name = "Admin"
	}

	ctx := context.Background()

	admin, err := authService.Register(ctx, auth.RegisterInput{
		Name:             name,
		Email:            email,
		Password:         password,
		OrganizationName: "Demo Organization",
	})
	if err != nil {
		log.Fatalf("failed to create admin user: %v", err)
	}

	// Seeded accounts skip email verification.
	now := time.Now()
	if err := db.Model(&models.User{}).Where("id = ?", admin.ID).
		Update("email_verified_at", &now).Error; err != nil {
		log.Fatalf("failed to verify admin: %v", err)
	}

	orgID := admin.OrganizationID

	staff := []struct {
		name  string
		email string
		role  models.Role
	}{
		{"Morgan Manager", "manager@example.com", models.RoleManager},
		{"Sam Staff", "staff@example.com", models.RoleStaff},
	}

	for _, s := range staff {
		hash, err := auth.HashPassword(password)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}
		user := models.User{
			Name:            s.name,
			Email:           s.email,
			PasswordHash:    hash,
			Role:            s.role,
			OrganizationID:  orgID,
			EmailVerifiedAt: &now,
		}
		if err := db.Create(&user).Error; err != nil {
			log.Fatalf("failed to create user %s: %v", s.email, err)
		}
	}

	clients := []models.Client{
		{Name: "Acme Ltd", Email: "contact@acme.test", Phone: "+254700000001", OrganizationID: orgID},
		{Name: "Globex Corp", Email: "hello@globex.test", Phone: "+254700000002", OrganizationID: orgID},
	}
	for i := range clients {
		if err := db.Create(&clients[i]).Error; err != nil {
			log.Fatalf("failed to create client: %v", err)
		}
	}

	due := now.Add(7 * 24 * time.Hour)
	seedTasks := []models.Task{
		{
			Title:          "Onboard Acme Ltd",
			Description:    "Collect signed engagement letter and KYC documents",
			Priority:       models.TaskPriorityHigh,
			Status:         models.TaskStatusInProgress,
			DueDate:        &due,
			OrganizationID: orgID,
			CreatedByID:    admin.ID,
			ClientID:       &clients[0].ID,
		},
		{
			Title:          "Quarterly review for Globex",
			Priority:       models.TaskPriorityMedium,
			Status:         models.TaskStatusTodo,
			OrganizationID: orgID,
			CreatedByID:    admin.ID,
			ClientID:       &clients[1].ID,
		},
	}
	for i := range seedTasks {
		if err := db.Create(&seedTasks[i]).Error; err != nil {
			log.Fatalf("failed to create task: %v", err)
		}
	}

	fmt.Println("Seed complete")
	fmt.Printf("Admin login: %s / %s\n", email, password)
}
