package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sparklink-app/sparklink/internal/db"
)

// MatchRepository provides data access methods for matches and their photo
// access grants.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// orderPair normalizes an unordered user pair into storage order (a < b).
func orderPair(u1, u2 string) (string, string) {
	if u1 < u2 {
		return u1, u2
	}
	return u2, u1
}

// CreateIfAbsent creates the match for an unordered pair exactly once and
// returns the surviving row.
//
// Behavior:
//   - The pair is normalized and inserted with ON CONFLICT DO NOTHING
//     against the pair's unique index.
//   - Two concurrent mutual-like detections may both attempt creation; the
//     race loser falls through to the re-read and observes the winner's row,
//     so the caller always gets exactly one match per pair.
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, userID1, userID2 string) (*db.Match, error) {
	a, b := orderPair(userID1, userID2)

	match := db.Match{
		ID:      uuid.NewString(),
		UserAID: a,
		UserBID: b,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoNothing: true,
		}).
		Create(&match).Error
	if err != nil {
		return nil, err
	}

	// Re-read so the race loser resolves to the existing row.
	return r.ByUsers(ctx, a, b)
}

// ByUsers loads the match for an unordered user pair.
// Returns gorm.ErrRecordNotFound when the pair has never matched.
func (r *MatchRepository) ByUsers(ctx context.Context, userID1, userID2 string) (*db.Match, error) {
	a, b := orderPair(userID1, userID2)

	var match db.Match
	err := r.db.WithContext(ctx).
		First(&match, "user_a_id = ? AND user_b_id = ?", a, b).Error
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ByID loads a match by primary key.
func (r *MatchRepository) ByID(ctx context.Context, id string) (*db.Match, error) {
	var match db.Match
	if err := r.db.WithContext(ctx).First(&match, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// ForUser returns all matches containing the given user id.
func (r *MatchRepository) ForUser(ctx context.Context, userID string) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Grants returns every photo access grant recorded on a match.
func (r *MatchRepository) Grants(ctx context.Context, matchID string) ([]db.PhotoAccessGrant, error) {
	var grants []db.PhotoAccessGrant
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// HasGrant checks whether grantedBy has permitted grantedTo on a match.
func (r *MatchRepository) HasGrant(ctx context.Context, matchID, grantedBy, grantedTo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.PhotoAccessGrant{}).
		Where("match_id = ? AND granted_by = ? AND granted_to = ?", matchID, grantedBy, grantedTo).
		Count(&count).Error
	return count > 0, err
}

// AddGrantIfAbsent appends a grant as an atomic "add to set if absent".
//
// Behavior:
//   - Insert with ON CONFLICT DO NOTHING against the composite primary key,
//     so concurrent grant calls cannot produce duplicate rows.
//   - Returns whether a new row was actually inserted (false = the grant
//     already existed; callers treat that as idempotent success).
//   - Grants are monotonic: nothing here (or anywhere) deletes them.
func (r *MatchRepository) AddGrantIfAbsent(ctx context.Context, matchID, grantedBy, grantedTo string) (bool, error) {
	grant := db.PhotoAccessGrant{
		MatchID:   matchID,
		GrantedBy: grantedBy,
		GrantedTo: grantedTo,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "match_id"}, {Name: "granted_by"}, {Name: "granted_to"},
			},
			DoNothing: true,
		}).
		Create(&grant)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
