package app

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"vocab-test-service/internal/domain"
)

const bcryptCost = 10

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

// AuthService handles registration, login, and token resolution. Tokens are
// 32 random bytes, stored SHA-256-hashed in the token store so a leaked store
// never exposes usable credentials.
type AuthService struct {
	users    UserRepository
	tokens   TokenStore
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(users UserRepository, tokens TokenStore, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Credentials carries a session token and its expiry for the cookie layer.
type Credentials struct {
	Token     string
	ExpiresAt time.Time
}

// Register creates an account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, username, password string) (domain.User, Credentials, error) {
	if !usernamePattern.MatchString(username) || len(password) < 6 || len(password) > 64 {
		return domain.User{}, Credentials{}, domain.ErrInvalidInput
	}

	if _, err := s.users.FindUserByName(ctx, username); err == nil {
		return domain.User{}, Credentials{}, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, Credentials{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return domain.User{}, Credentials{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return domain.User{}, Credentials{}, err
	}

	creds, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return domain.User{}, Credentials{}, err
	}
	return user, creds, nil
}

// Login verifies the password and opens a new session.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.User, Credentials, error) {
	user, err := s.users.FindUserByName(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, Credentials{}, domain.ErrBadCredentials
		}
		return domain.User{}, Credentials{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.User{}, Credentials{}, domain.ErrBadCredentials
	}

	creds, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return domain.User{}, Credentials{}, err
	}
	return user, creds, nil
}

// Logout revokes the given token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.tokens.DeleteToken(ctx, hashToken(token))
}

// Resolve turns a raw cookie token into the user it identifies.
func (s *AuthService) Resolve(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUnauthorized
	}
	userID, err := s.tokens.LookupToken(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) issueToken(ctx context.Context, userID string) (Credentials, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return Credentials{}, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)
	if err := s.tokens.SaveToken(ctx, hashToken(token), userID, s.tokenTTL); err != nil {
		return Credentials{}, err
	}
	return Credentials{Token: token, ExpiresAt: s.now().Add(s.tokenTTL)}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
