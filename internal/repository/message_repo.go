package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sparklink-app/sparklink/internal/db"
)

// MessageRepository provides data access methods for the ChatMessage model.
// Messages are append-only; no update or delete paths exist.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Append inserts a new message row.
func (r *MessageRepository) Append(ctx context.Context, msg *db.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListForMatch returns every message of a match in ascending creation order.
// The (created_at, id) tie-break keeps ordering stable for same-instant rows.
func (r *MessageRepository) ListForMatch(ctx context.Context, matchID string) ([]db.ChatMessage, error) {
	var messages []db.ChatMessage
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// CountForMatch returns how many messages a match has accumulated.
func (r *MessageRepository) CountForMatch(ctx context.Context, matchID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.ChatMessage{}).
		Where("match_id = ?", matchID).
		Count(&count).Error
	return count, err
}

// LastForMatch returns the most recent message of a match, or nil when the
// conversation is still empty.
func (r *MessageRepository) LastForMatch(ctx context.Context, matchID string) (*db.ChatMessage, error) {
	var msg db.ChatMessage
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
