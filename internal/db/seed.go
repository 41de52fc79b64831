package db

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the shared plaintext password of the seeded demo accounts.
const DemoPassword = "password123"

// EnsureDemoData inserts three fully onboarded demo users when the users
// table is empty. Idempotent: a non-empty table is left untouched, so it is
// safe to call on every dev startup.
func EnsureDemoData(db *gorm.DB, logger *slog.Logger) error {
	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		logger.Debug("demo data skipped, users already present", "count", count)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	users := []User{
		{
			ID:           uuid.NewString(),
			Email:        "aarav@example.com",
			PasswordHash: string(hash),
			Name:         "Aarav Malhotra",
			Age:          28,
			Gender:       "male",
			Bio:          "Product designer who unwinds with street photography and filter coffee.",
			Location:     "Bengaluru",
			Interests:    []string{"photography", "coffee", "trekking"},
			AvatarKey:    "lion",
			LookingFor:   "female",
			Occupation:   "Product Designer",
			PrivatePhotos: []string{
				"https://cdn.example.com/demo/aarav-1.jpg",
				"https://cdn.example.com/demo/aarav-2.jpg",
			},
			OnboardingCompleted: true,
		},
		{
			ID:           uuid.NewString(),
			Email:        "isha@example.com",
			PasswordHash: string(hash),
			Name:         "Isha Kapoor",
			Age:          26,
			Gender:       "female",
			Bio:          "Bookshop regular, amateur baker, serious about board games.",
			Location:     "Mumbai",
			Interests:    []string{"books", "baking", "board games"},
			AvatarKey:    "lotus",
			LookingFor:   "male",
			Occupation:   "Architect",
			PrivatePhotos: []string{
				"https://cdn.example.com/demo/isha-1.jpg",
			},
			OnboardingCompleted: true,
		},
		{
			ID:           uuid.NewString(),
			Email:        "rohan@example.com",
			PasswordHash: string(hash),
			Name:         "Rohan Bhat",
			Age:          30,
			Gender:       "male",
			Bio:          "Runs marathons slowly and startups quickly.",
			Location:     "Delhi",
			Interests:    []string{"running", "startups", "cricket"},
			AvatarKey:    "falcon",
			LookingFor:   "female",
			Occupation:   "Founder",
			PrivatePhotos: []string{
				"https://cdn.example.com/demo/rohan-1.jpg",
				"https://cdn.example.com/demo/rohan-2.jpg",
				"https://cdn.example.com/demo/rohan-3.jpg",
			},
			OnboardingCompleted: true,
		},
	}

	if err := db.Create(&users).Error; err != nil {
		return fmt.Errorf("seed demo users: %w", err)
	}

	logger.Info("seeded demo users", "count", len(users), "password", DemoPassword)
	return nil
}
