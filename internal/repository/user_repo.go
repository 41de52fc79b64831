package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sparklink-app/sparklink/internal/db"
	"github.com/sparklink-app/sparklink/internal/utils/pagination"
)

// UserRepository provides data access methods for the User model.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Create inserts a new user row. Email is stored lowercased so the unique
// index enforces case-insensitive uniqueness.
func (r *UserRepository) Create(ctx context.Context, user *db.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.db.WithContext(ctx).Create(user).Error
}

// ByID loads a user by primary key. Returns gorm.ErrRecordNotFound when absent.
func (r *UserRepository) ByID(ctx context.Context, id string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ByEmail loads a user by email, matching case-insensitively.
func (r *UserRepository) ByEmail(ctx context.Context, email string) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).
		First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ByGoogleID loads a user by the linked external identity subject.
func (r *UserRepository) ByGoogleID(ctx context.Context, googleID string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, "google_id = ?", googleID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Save writes back a fully loaded user row (used by the full profile update).
func (r *UserRepository) Save(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// LinkGoogleID attaches an external identity subject to an existing account
// (targeted patch; no other column is touched).
func (r *UserRepository) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Update("google_id", googleID).Error
}

// Count returns the total number of user rows (used by the idempotent seeder).
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Count(&count).Error
	return count, err
}

// Discover returns onboarded users the viewer has not yet swiped on,
// excluding the viewer.
//
// Behavior:
//   - Only the viewer's outgoing swipes filter candidates; being swiped on
//     by others does not hide anyone.
//   - Ordered by created_at ASC, id ASC (stable by insertion).
//   - limit <= 0 disables pagination and returns the full feed.
//   - Supports cursor-based pagination via paginationToken.
func (r *UserRepository) Discover(
	ctx context.Context,
	viewerID string,
	paginationToken *string,
	limit int,
) ([]db.User, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("users u").
		Where("u.onboarding_completed = ?", true).
		Where("u.id <> ?", viewerID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipes s
				WHERE s.from_user_id = ?
				  AND s.to_user_id = u.id
			)`, viewerID).
		Order("u.created_at ASC, u.id ASC")

	if limit > 0 {
		query = query.Limit(limit + 1)
	}

	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(u.created_at > ? OR (u.created_at = ? AND u.id > ?))",
			ts, ts, cursor.LastID,
		)
	}

	var users []db.User
	if err := query.Find(&users).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if limit > 0 && len(users) > limit {
		last := users[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			CreatedUnix: last.CreatedAt.UnixMilli(),
			LastID:      last.ID,
		})
		nextToken = &token
		users = users[:limit]
	}

	return users, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
