// Package matching implements the match engine: swipes, mutual-like
// detection, match summaries, the photo-access consent gate and the chat
// channel between matched users.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sparklink-app/sparklink/internal/app"
	"github.com/sparklink-app/sparklink/internal/db"
	"github.com/sparklink-app/sparklink/internal/repository"
	"github.com/sparklink-app/sparklink/internal/service/account"
	"github.com/sparklink-app/sparklink/internal/svcerr"
	"github.com/sparklink-app/sparklink/internal/utils/pagination"
)

// MinMessagesForPhotoAccess is the trust threshold: the number of messages a
// match must accumulate before photo-access grants become possible.
const MinMessagesForPhotoAccess = 8

// LastMessage is the conversation preview embedded in a match summary.
type LastMessage struct {
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
	FromUserID string    `json:"fromUserId"`
}

// MatchSummary is the per-viewer view model of a match. The three consent
// booleans are always computed from the viewer's perspective.
type MatchSummary struct {
	MatchID                      string             `json:"matchId"`
	ConnectedAt                  time.Time          `json:"connectedAt"`
	User                         account.PublicUser `json:"user"`
	CanViewPrivatePhotos         bool               `json:"canViewPrivatePhotos"`
	HasGrantedPhotoAccess        bool               `json:"hasGrantedPhotoAccess"`
	IsEligibleToGrantPhotoAccess bool               `json:"isEligibleToGrantPhotoAccess"`
	MessageCount                 int64              `json:"messageCount"`
	LastMessage                  *LastMessage       `json:"lastMessage,omitempty"`
}

// SwipeResult reports the outcome of a swipe.
type SwipeResult struct {
	Matched       bool          `json:"matched"`
	Match         *MatchSummary `json:"match,omitempty"`
	MatchedUserID string        `json:"matchedUserId,omitempty"`
}

// Message is the wire shape of a chat message.
type Message struct {
	ID         string    `json:"id"`
	MatchID    string    `json:"matchId"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DiscoverPage is one page of the discovery feed.
type DiscoverPage struct {
	Users         []account.PublicUser `json:"users"`
	NextPageToken *string              `json:"nextPageToken,omitempty"`
}

// Service contains the match engine's business logic on top of the
// repository and cache layers. It never mutates state directly; every write
// goes through a repository.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	swipes   *repository.SwipeRepository
	matches  *repository.MatchRepository
	messages *repository.MessageRepository
}

// NewService creates the match engine with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		swipes:   repository.NewSwipeRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
	}
}

// Discover returns onboarded users the viewer has not swiped on yet.
// The feed is unscored; order is stable by insertion. limit <= 0 returns
// the whole feed in one page.
func (s *Service) Discover(ctx context.Context, viewerID string, pageToken *string, limit int) (*DiscoverPage, error) {
	if _, err := s.loadUser(ctx, viewerID); err != nil {
		return nil, err
	}
	if pageToken != nil {
		if _, err := pagination.Decode(*pageToken); err != nil {
			return nil, svcerr.InvalidInput("invalid page token")
		}
	}

	candidates, next, err := s.users.Discover(ctx, viewerID, pageToken, limit)
	if err != nil {
		return nil, svcerr.Internal("discover candidates", err)
	}

	page := &DiscoverPage{Users: make([]account.PublicUser, 0, len(candidates)), NextPageToken: next}
	for i := range candidates {
		page.Users = append(page.Users, account.PublicProfile(&candidates[i]))
	}
	return page, nil
}

// Swipe records a like/pass and detects mutual likes.
//
// Behavior:
//   - Self-swipe fails with InvalidOperation; unknown users with NotFound.
//   - The swipe row is always upserted first, so a reversed decision
//     overwrites the prior one before anything else happens.
//   - A pass short-circuits with matched=false.
//   - A like checks the reciprocal swipe; only a recorded reciprocal like
//     produces (or re-reads) the pair's single match.
func (s *Service) Swipe(ctx context.Context, userID, targetUserID, action string) (*SwipeResult, error) {
	if action != db.SwipeLike && action != db.SwipePass {
		return nil, svcerr.InvalidInput("action must be \"like\" or \"pass\"")
	}
	if userID == targetUserID {
		return nil, svcerr.InvalidOperation("you cannot swipe yourself")
	}

	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.loadUser(ctx, targetUserID); err != nil {
		return nil, err
	}

	if err := s.swipes.Upsert(ctx, userID, targetUserID, action); err != nil {
		return nil, svcerr.Internal("record swipe", err)
	}

	if action == db.SwipePass {
		return &SwipeResult{Matched: false}, nil
	}

	reciprocal, err := s.swipes.Get(ctx, targetUserID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &SwipeResult{Matched: false}, nil
	} else if err != nil {
		return nil, svcerr.Internal("load reciprocal swipe", err)
	}
	if reciprocal.Action != db.SwipeLike {
		return &SwipeResult{Matched: false}, nil
	}

	match, err := s.matches.CreateIfAbsent(ctx, userID, targetUserID)
	if err != nil {
		return nil, svcerr.Internal("create match", err)
	}

	summary, err := s.buildMatchSummary(ctx, match, userID)
	if err != nil {
		return nil, err
	}

	return &SwipeResult{
		Matched:       true,
		Match:         summary,
		MatchedUserID: targetUserID,
	}, nil
}

// Matches returns the viewer's match summaries ordered by most recent
// activity: last message time when the conversation has started, connection
// time otherwise, descending.
func (s *Service) Matches(ctx context.Context, userID string) ([]MatchSummary, error) {
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}

	matches, err := s.matches.ForUser(ctx, userID)
	if err != nil {
		return nil, svcerr.Internal("load matches", err)
	}

	summaries := make([]MatchSummary, 0, len(matches))
	for i := range matches {
		summary, err := s.buildMatchSummary(ctx, &matches[i], userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return lastActivity(&summaries[i]).After(lastActivity(&summaries[j]))
	})

	return summaries, nil
}

// SummaryFor rebuilds one match's summary from a specific viewer's
// perspective (used to push a match event to the other party).
func (s *Service) SummaryFor(ctx context.Context, matchID, viewerID string) (*MatchSummary, error) {
	match, err := s.matches.ByID(ctx, matchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcerr.NotFound("match not found")
	} else if err != nil {
		return nil, svcerr.Internal("load match", err)
	}
	return s.buildMatchSummary(ctx, match, viewerID)
}

// GrantPhotoAccess records the granter's one-directional consent for the
// matched user to view their private photos.
//
// Behavior:
//   - NotFound without a match between the pair.
//   - NotEligible while the conversation is below the trust threshold.
//   - Idempotent: a repeated grant is a success, not a duplicate.
func (s *Service) GrantPhotoAccess(ctx context.Context, granterID, matchUserID string) error {
	match, err := s.matches.ByUsers(ctx, granterID, matchUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcerr.NotFound("match not found")
	} else if err != nil {
		return svcerr.Internal("load match", err)
	}

	count, err := s.messageCount(ctx, match.ID)
	if err != nil {
		return err
	}
	if count < MinMessagesForPhotoAccess {
		return svcerr.NotEligible(fmt.Sprintf(
			"keep chatting: at least %d messages are required before granting photo access",
			MinMessagesForPhotoAccess,
		))
	}

	if _, err := s.matches.AddGrantIfAbsent(ctx, match.ID, granterID, matchUserID); err != nil {
		return svcerr.Internal("record grant", err)
	}
	return nil
}

// PrivatePhotos returns the target's private photo list once the viewer has
// passed every gate: an existing match, the trust threshold, and the
// target's explicit grant. An empty list is a valid result.
func (s *Service) PrivatePhotos(ctx context.Context, viewerID, targetUserID string) ([]string, error) {
	match, err := s.matches.ByUsers(ctx, viewerID, targetUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcerr.NotFound("match not found")
	} else if err != nil {
		return nil, svcerr.Internal("load match", err)
	}

	count, err := s.messageCount(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	if count < MinMessagesForPhotoAccess {
		return nil, svcerr.NotEligible("not enough chat history yet to unlock private photos")
	}

	granted, err := s.matches.HasGrant(ctx, match.ID, targetUserID, viewerID)
	if err != nil {
		return nil, svcerr.Internal("load grants", err)
	}
	if !granted {
		return nil, svcerr.ConsentRequired("the other user has not granted photo access yet")
	}

	target, err := s.loadUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	photos := target.PrivatePhotos
	if photos == nil {
		photos = []string{}
	}
	return photos, nil
}

// SendMessage appends a chat message between two matched users.
func (s *Service) SendMessage(ctx context.Context, fromUserID, toUserID, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, svcerr.InvalidInput("message cannot be empty")
	}

	match, err := s.matches.ByUsers(ctx, fromUserID, toUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcerr.NotMatched("you can only message users you matched with")
	} else if err != nil {
		return nil, svcerr.Internal("load match", err)
	}

	msg := &db.ChatMessage{
		ID:         uuid.NewString(),
		MatchID:    match.ID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Text:       text,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, svcerr.Internal("append message", err)
	}

	// keep the cached count in step; a cold cache repopulates on next read
	if err := s.appCtx.RedisCache.BumpMessageCount(ctx, match.ID); err != nil {
		s.appCtx.Logger.Debug("message count cache bump failed", "match_id", match.ID, "err", err)
	}

	return toMessage(msg), nil
}

// Conversation returns all messages of the viewer's match with matchUserID
// in ascending creation order.
func (s *Service) Conversation(ctx context.Context, viewerID, matchUserID string) ([]Message, error) {
	match, err := s.matches.ByUsers(ctx, viewerID, matchUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcerr.NotFound("match not found")
	} else if err != nil {
		return nil, svcerr.Internal("load match", err)
	}

	rows, err := s.messages.ListForMatch(ctx, match.ID)
	if err != nil {
		return nil, svcerr.Internal("load messages", err)
	}

	out := make([]Message, 0, len(rows))
	for i := range rows {
		out = append(out, *toMessage(&rows[i]))
	}
	return out, nil
}

// buildMatchSummary derives the viewer-specific view model of a match.
// A pair that does not contain exactly one other resolvable user is a fatal
// DataIntegrity failure, not a user error.
func (s *Service) buildMatchSummary(ctx context.Context, match *db.Match, viewerID string) (*MatchSummary, error) {
	var otherUserID string
	switch viewerID {
	case match.UserAID:
		otherUserID = match.UserBID
	case match.UserBID:
		otherUserID = match.UserAID
	default:
		return nil, svcerr.DataIntegrity("match does not contain the viewer", nil)
	}
	if otherUserID == viewerID {
		return nil, svcerr.DataIntegrity("match pair collapsed to a single user", nil)
	}

	other, err := s.users.ByID(ctx, otherUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcerr.DataIntegrity("match references a missing user", err)
	} else if err != nil {
		return nil, svcerr.Internal("load match user", err)
	}

	count, err := s.messageCount(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	eligible := count >= MinMessagesForPhotoAccess

	grantedByViewer, err := s.matches.HasGrant(ctx, match.ID, viewerID, otherUserID)
	if err != nil {
		return nil, svcerr.Internal("load grants", err)
	}
	grantedByOther, err := s.matches.HasGrant(ctx, match.ID, otherUserID, viewerID)
	if err != nil {
		return nil, svcerr.Internal("load grants", err)
	}

	summary := &MatchSummary{
		MatchID:                      match.ID,
		ConnectedAt:                  match.CreatedAt,
		User:                         account.PublicProfile(other),
		CanViewPrivatePhotos:         eligible && grantedByOther,
		HasGrantedPhotoAccess:        grantedByViewer,
		IsEligibleToGrantPhotoAccess: eligible,
		MessageCount:                 count,
	}

	last, err := s.messages.LastForMatch(ctx, match.ID)
	if err != nil {
		return nil, svcerr.Internal("load last message", err)
	}
	if last != nil {
		summary.LastMessage = &LastMessage{
			Text:       last.Text,
			CreatedAt:  last.CreatedAt,
			FromUserID: last.FromUserID,
		}
	}

	return summary, nil
}

// messageCount is cache-first: Redis by match id, database on miss with the
// cache repopulated on the way out (the cache layer owns the TTL policy).
func (s *Service) messageCount(ctx context.Context, matchID string) (int64, error) {
	if n, hit, err := s.appCtx.RedisCache.MessageCount(ctx, matchID); err == nil && hit {
		return n, nil
	}

	count, err := s.messages.CountForMatch(ctx, matchID)
	if err != nil {
		return 0, svcerr.Internal("count messages", err)
	}

	if err := s.appCtx.RedisCache.SetMessageCount(ctx, matchID, count); err != nil {
		s.appCtx.Logger.Debug("message count cache set failed", "match_id", matchID, "err", err)
	}
	return count, nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (*db.User, error) {
	user, err := s.users.ByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcerr.NotFound("user not found")
	} else if err != nil {
		return nil, svcerr.Internal("lookup user", err)
	}
	return user, nil
}

func lastActivity(s *MatchSummary) time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.CreatedAt
	}
	return s.ConnectedAt
}

func toMessage(m *db.ChatMessage) *Message {
	return &Message{
		ID:         m.ID,
		MatchID:    m.MatchID,
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		Text:       m.Text,
		CreatedAt:  m.CreatedAt,
	}
}
