package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"snorq/internal/domain/connection"
	"snorq/internal/domain/conversation"
	"snorq/internal/domain/message"
	"snorq/internal/domain/organization"
	"snorq/internal/domain/user"
)

// RunFullMigration applies the raw SQL migrations followed by the GORM
// schema for every table.
func RunFullMigration(migrationsDir string) error {
	if err := DB.AutoMigrate(
		&user.User{},
		&organization.Organization{},
		&organization.Member{},
		&connection.PlatformConnection{},
		&conversation.Conversation{},
		&message.Message{},
	); err != nil {
		return err
	}
	return ApplyRawMigrations(migrationsDir)
}

func Ping() error {
	return HealthCheck()
}

func TableExists(table string) (bool, error) {
	var exists bool
	err := DB.Raw(
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = ?)",
		table,
	).Scan(&exists).Error
	return exists, err
}

func GetTableCount(table string) (int64, error) {
	var count int64
	err := DB.Table(table).Count(&count).Error
	return count, err
}

// SeedAdmin creates (or finds) the admin user together with a default
// organization owned by them.
func SeedAdmin(email, password, orgName string) (user.User, error) {
	var existing user.User
	if err := DB.Where("email = ?", email).First(&existing).Error; err == nil {
		return existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, err
	}

	admin := user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  "Admin",
	}
	if err := DB.Create(&admin).Error; err != nil {
		return user.User{}, fmt.Errorf("create admin user: %w", err)
	}

	org := organization.Organization{
		ID:   uuid.New(),
		Name: orgName,
	}
	if err := DB.Create(&org).Error; err != nil {
		return user.User{}, fmt.Errorf("create organization: %w", err)
	}

	member := organization.Member{
		OrganizationID: org.ID,
		UserID:         admin.ID,
		Role:           organization.RoleOwner,
		JoinedAt:       time.Now(),
	}
	if err := DB.Create(&member).Error; err != nil {
		return user.User{}, fmt.Errorf("create membership: %w", err)
	}

	return admin, nil
}
