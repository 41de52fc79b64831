// Package account implements registration, login, social sign-in and
// profile management.
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sparklink-app/sparklink/internal/app"
	"github.com/sparklink-app/sparklink/internal/db"
	"github.com/sparklink-app/sparklink/internal/identity"
	"github.com/sparklink-app/sparklink/internal/repository"
	"github.com/sparklink-app/sparklink/internal/svcerr"
	"github.com/sparklink-app/sparklink/internal/token"
)

const (
	DefaultAvatarKey  = "fox"
	minPasswordLength = 6
	placeholderAge    = 21
	defaultGender     = "prefer_not_say"
)

// PublicUser is the profile shape exposed to other users and to the owner.
// Email, password hash and private photos never appear here.
type PublicUser struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Age                 int      `json:"age"`
	Gender              string   `json:"gender"`
	Bio                 string   `json:"bio"`
	Location            string   `json:"location"`
	Interests           []string `json:"interests"`
	AvatarKey           string   `json:"avatarKey"`
	LookingFor          string   `json:"lookingFor,omitempty"`
	RelationshipGoal    string   `json:"relationshipGoal,omitempty"`
	Occupation          string   `json:"occupation,omitempty"`
	Education           string   `json:"education,omitempty"`
	HeightCm            int      `json:"heightCm,omitempty"`
	Drinking            string   `json:"drinking,omitempty"`
	Smoking             string   `json:"smoking,omitempty"`
	Religion            string   `json:"religion,omitempty"`
	Languages           []string `json:"languages,omitempty"`
	OnboardingCompleted bool     `json:"onboardingCompleted"`
}

// AuthResult is returned by every successful authentication flow.
type AuthResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput is the full profile update; applying it marks onboarding
// complete.
type ProfileInput struct {
	Name             string   `json:"name"`
	Age              int      `json:"age"`
	Gender           string   `json:"gender"`
	Bio              string   `json:"bio"`
	Location         string   `json:"location"`
	Interests        []string `json:"interests"`
	AvatarKey        string   `json:"avatarKey"`
	LookingFor       string   `json:"lookingFor"`
	RelationshipGoal string   `json:"relationshipGoal"`
	Occupation       string   `json:"occupation"`
	Education        string   `json:"education"`
	HeightCm         int      `json:"heightCm"`
	Drinking         string   `json:"drinking"`
	Smoking          string   `json:"smoking"`
	Religion         string   `json:"religion"`
	Languages        []string `json:"languages"`
	PrivatePhotos    []string `json:"privatePhotos"`
}

// Service wires the account flows onto the user repository, the token
// issuer and the external identity provider.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	tokens *token.Service
	google identity.Verifier
}

// NewService creates an account service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, tokens *token.Service, google identity.Verifier) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		tokens: tokens,
		google: google,
	}
}

// Users exposes the underlying repository for collaborators that share it.
func (s *Service) Users() *repository.UserRepository { return s.users }

// PublicProfile converts a stored user into its public shape, applying the
// same placeholder defaults new accounts start with.
func PublicProfile(u *db.User) PublicUser {
	out := PublicUser{
		ID:                  u.ID,
		Name:                u.Name,
		Age:                 u.Age,
		Gender:              u.Gender,
		Bio:                 u.Bio,
		Location:            u.Location,
		Interests:           u.Interests,
		AvatarKey:           u.AvatarKey,
		LookingFor:          u.LookingFor,
		RelationshipGoal:    u.RelationshipGoal,
		Occupation:          u.Occupation,
		Education:           u.Education,
		HeightCm:            u.HeightCm,
		Drinking:            u.Drinking,
		Smoking:             u.Smoking,
		Religion:            u.Religion,
		Languages:           u.Languages,
		OnboardingCompleted: u.OnboardingCompleted,
	}
	if out.Age == 0 {
		out.Age = placeholderAge
	}
	if out.Gender == "" {
		out.Gender = defaultGender
	}
	if out.AvatarKey == "" {
		out.AvatarKey = DefaultAvatarKey
	}
	if out.Interests == nil {
		out.Interests = []string{}
	}
	return out
}

// Register creates a password account and issues its first session token.
// A duplicate email fails with AlreadyExists.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if name == "" || email == "" || input.Password == "" {
		return nil, svcerr.InvalidInput("name, email and password are required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, svcerr.InvalidInput("password should be at least 6 characters")
	}

	if _, err := s.users.ByEmail(ctx, email); err == nil {
		return nil, svcerr.AlreadyExists("email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcerr.Internal("lookup by email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, svcerr.Internal("hash password", err)
	}

	user := newUser(name, email)
	user.PasswordHash = string(hash)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, svcerr.Internal("create user", err)
	}

	return s.authResult(user)
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.users.ByEmail(ctx, input.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcerr.Unauthorized("invalid credentials")
	} else if err != nil {
		return nil, svcerr.Internal("lookup by email", err)
	}

	if user.PasswordHash == "" {
		// identity-provider-only account
		return nil, svcerr.Unauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, svcerr.Unauthorized("invalid credentials")
	}

	return s.authResult(user)
}

// LoginWithGoogle resolves a verified identity to an account: by linked
// subject first, then by email (linking the subject on the way), otherwise
// by creating a fresh identity-provider-only account.
func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (*AuthResult, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, svcerr.InvalidInput("google id token is required")
	}

	ident, err := s.google.Verify(ctx, idToken)
	if err != nil {
		s.appCtx.Logger.Warn("google token verification failed", "err", err)
		return nil, svcerr.Unauthorized("invalid google token")
	}

	user, err := s.users.ByGoogleID(ctx, ident.Subject)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcerr.Internal("lookup by google id", err)
	}

	if user == nil {
		byEmail, err := s.users.ByEmail(ctx, ident.Email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcerr.Internal("lookup by email", err)
		}
		if byEmail != nil {
			if err := s.users.LinkGoogleID(ctx, byEmail.ID, ident.Subject); err != nil {
				return nil, svcerr.Internal("link google id", err)
			}
			sub := ident.Subject
			byEmail.GoogleID = &sub
			user = byEmail
		}
	}

	if user == nil {
		name := ident.Name
		if name == "" {
			name = strings.SplitN(ident.Email, "@", 2)[0]
		}
		created := newUser(name, strings.ToLower(ident.Email))
		sub := ident.Subject
		created.GoogleID = &sub

		if err := s.users.Create(ctx, created); err != nil {
			return nil, svcerr.Internal("create user", err)
		}
		user = created
	}

	return s.authResult(user)
}

// Profile returns the public profile of a user.
func (s *Service) Profile(ctx context.Context, userID string) (*PublicUser, error) {
	user, err := s.users.ByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcerr.NotFound("user not found")
	} else if err != nil {
		return nil, svcerr.Internal("lookup user", err)
	}

	pub := PublicProfile(user)
	return &pub, nil
}

// UpdateProfile applies the full profile update and marks onboarding
// complete.
func (s *Service) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*PublicUser, error) {
	if strings.TrimSpace(input.Name) == "" ||
		strings.TrimSpace(input.Location) == "" ||
		input.Gender == "" || input.AvatarKey == "" {
		return nil, svcerr.InvalidInput("profile is incomplete")
	}
	if input.Age < 18 || input.Age > 100 {
		return nil, svcerr.InvalidInput("age must be between 18 and 100")
	}

	user, err := s.users.ByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcerr.NotFound("user not found")
	} else if err != nil {
		return nil, svcerr.Internal("lookup user", err)
	}

	user.Name = strings.TrimSpace(input.Name)
	user.Age = input.Age
	user.Gender = input.Gender
	user.Bio = strings.TrimSpace(input.Bio)
	user.Location = strings.TrimSpace(input.Location)
	user.Interests = input.Interests
	user.AvatarKey = input.AvatarKey
	user.LookingFor = input.LookingFor
	user.RelationshipGoal = input.RelationshipGoal
	user.Occupation = strings.TrimSpace(input.Occupation)
	user.Education = strings.TrimSpace(input.Education)
	user.HeightCm = input.HeightCm
	user.Drinking = input.Drinking
	user.Smoking = input.Smoking
	user.Religion = strings.TrimSpace(input.Religion)
	user.Languages = input.Languages
	user.PrivatePhotos = input.PrivatePhotos
	user.OnboardingCompleted = true

	if err := s.users.Save(ctx, user); err != nil {
		return nil, svcerr.Internal("save profile", err)
	}

	pub := PublicProfile(user)
	return &pub, nil
}

func (s *Service) authResult(user *db.User) (*AuthResult, error) {
	tok, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, svcerr.Internal("issue token", err)
	}
	return &AuthResult{Token: tok, User: PublicProfile(user)}, nil
}

// newUser builds a fresh account with placeholder profile defaults; the
// onboarding flow fills in the rest.
func newUser(name, email string) *db.User {
	return &db.User{
		ID:                  uuid.NewString(),
		Name:                name,
		Email:               email,
		Age:                 placeholderAge,
		Gender:              defaultGender,
		Interests:           []string{},
		AvatarKey:           DefaultAvatarKey,
		PrivatePhotos:       []string{},
		OnboardingCompleted: false,
	}
}
