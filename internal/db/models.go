package db

import (
	"time"
)

// Swipe actions.
const (
	SwipeLike = "like"
	SwipePass = "pass"
)

// User table. Private photo URLs never leave the server except through the
// consent-gated private-photos endpoint.
type User struct {
	ID           string  `gorm:"primaryKey;size:36"`
	GoogleID     *string `gorm:"uniqueIndex;size:64"`
	Email        string  `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string  `gorm:"size:255"`

	Name      string   `gorm:"size:64;not null"`
	Age       int      `gorm:"not null"`
	Gender    string   `gorm:"size:16"`
	Bio       string   `gorm:"size:1024"`
	Location  string   `gorm:"size:128"`
	Interests []string `gorm:"serializer:json"`
	AvatarKey string   `gorm:"size:32"`

	LookingFor       string   `gorm:"size:16"`
	RelationshipGoal string   `gorm:"size:16"`
	Occupation       string   `gorm:"size:128"`
	Education        string   `gorm:"size:128"`
	HeightCm         int      ``
	Drinking         string   `gorm:"size:16"`
	Smoking          string   `gorm:"size:16"`
	Religion         string   `gorm:"size:64"`
	Languages        []string `gorm:"serializer:json"`

	PrivatePhotos       []string `gorm:"serializer:json"`
	OnboardingCompleted bool     `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Swipe represents an actor's like/pass on a target.
//
// Composite PK: (FromUserID, ToUserID)
//   - Ensures a single row per ordered pair (overwrite guarantee).
//
// Fields:
//   - FromUserID: The user swiping.
//   - ToUserID: The user being liked/passed.
//   - Action: "like" or "pass"; a later swipe overwrites the earlier one.
type Swipe struct {
	FromUserID string    `gorm:"primaryKey;size:36"`
	ToUserID   string    `gorm:"primaryKey;size:36"`
	Action     string    `gorm:"size:8;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// Match records that two users mutually liked each other.
//
// The pair is stored normalized (UserAID < UserBID) so the composite unique
// index gives at most one match per unordered pair. Concurrent mutual-like
// detections both attempting creation resolve through the index: the loser
// re-reads the winner's row instead of surfacing a duplicate.
type Match struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserAID   string    `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:1"`
	UserBID   string    `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// PhotoAccessGrant is a one-directional, irrevocable permission for GrantedTo
// to view GrantedBy's private photos on a match.
//
// Composite PK: (MatchID, GrantedBy, GrantedTo). Inserting with an
// on-conflict-do-nothing clause makes the grant an atomic
// "add to set if absent", so concurrent grant calls cannot duplicate rows.
type PhotoAccessGrant struct {
	MatchID   string    `gorm:"primaryKey;size:36"`
	GrantedBy string    `gorm:"primaryKey;size:36"`
	GrantedTo string    `gorm:"primaryKey;size:36"`
	GrantedAt time.Time `gorm:"autoCreateTime"`
}

// ChatMessage is append-only; rows are never updated or deleted.
type ChatMessage struct {
	ID         string    `gorm:"primaryKey;size:36"`
	MatchID    string    `gorm:"size:36;not null;index:idx_message_match_created,priority:1"`
	FromUserID string    `gorm:"size:36;not null"`
	ToUserID   string    `gorm:"size:36;not null"`
	Text       string    `gorm:"size:2000;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_message_match_created,priority:2"`
}
