package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sparklink-app/sparklink/internal/db"
)

// SwipeRepository provides data access methods for the Swipe model.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// Upsert inserts or overwrites the swipe from -> to.
//
// Behavior:
//   - If the (from_user_id, to_user_id) pair exists → the row is updated
//     with the new action (a reversed decision overwrites the prior one).
//   - If it doesn't exist → a new row is inserted.
//   - Composite PK ensures the single-row-per-ordered-pair invariant.
//
// Example:
//
//	repo.Upsert(ctx, "alice", "bob", db.SwipeLike)
func (r *SwipeRepository) Upsert(ctx context.Context, fromUserID, toUserID, action string) error {
	swipe := db.Swipe{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Action:     action,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"action", "updated_at"}),
		}).
		Create(&swipe).Error
}

// Get loads the swipe from -> to. Returns gorm.ErrRecordNotFound when the
// ordered pair has no recorded swipe.
func (r *SwipeRepository) Get(ctx context.Context, fromUserID, toUserID string) (*db.Swipe, error) {
	var swipe db.Swipe
	err := r.db.WithContext(ctx).
		First(&swipe, "from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).Error
	if err != nil {
		return nil, err
	}
	return &swipe, nil
}
