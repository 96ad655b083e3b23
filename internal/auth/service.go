package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

// Store is the persistence surface the service needs. The Postgres
// implementation lives in repository.go; tests plug in an in-memory fake.
type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	CreateRefreshToken(ctx context.Context, userID, rawToken string, expiresAt time.Time) error
	RotateRefreshToken(ctx context.Context, rawOldToken, rawNewToken string, newExpiresAt time.Time) (string, error)
	RevokeRefreshToken(ctx context.Context, rawToken string) error
}

type Service struct {
	store  Store
	tokens *TokenManager
}

func NewService(store Store, tokens *TokenManager) *Service {
	return &Service{store: store, tokens: tokens}
}

func (s *Service) Signup(ctx context.Context, username, email, password string) (User, TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	_, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return User{}, TokenPair{}, ErrEmailTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, TokenPair{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, email, string(hash))
	if err != nil {
		return User{}, TokenPair{}, err
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenPair{}, err
	}

	return user, tokens, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (User, TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, TokenPair{}, ErrInvalidCredentials
		}
		return User{}, TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, TokenPair{}, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenPair{}, err
	}

	return user, tokens, nil
}

// Refresh rotates the refresh token: the presented token must verify
// cryptographically and still be live server-side. The old record is retired in
// the same step that creates its replacement.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}

	newRefresh, newExpiresAt, err := s.tokens.SignRefresh(userID)
	if err != nil {
		return TokenPair{}, err
	}

	recordUserID, err := s.store.RotateRefreshToken(ctx, refreshToken, newRefresh, newExpiresAt)
	if err != nil {
		return TokenPair{}, err
	}
	if recordUserID != userID {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	access, expiresIn, err := s.tokens.SignAccess(userID)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     newRefresh,
		RefreshExpiresAt: newExpiresAt,
		AccessExpiresIn:  expiresIn,
	}, nil
}

// Logout revokes the server-side record. The cookie is cleared by the handler;
// revocation is idempotent, so a second logout with the same token is a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	return s.store.RevokeRefreshToken(ctx, refreshToken)
}

func (s *Service) issueTokens(ctx context.Context, userID string) (TokenPair, error) {
	access, expiresIn, err := s.tokens.SignAccess(userID)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, refreshExpiresAt, err := s.tokens.SignRefresh(userID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.CreateRefreshToken(ctx, userID, refresh, refreshExpiresAt); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpiresAt,
		AccessExpiresIn:  expiresIn,
	}, nil
}
