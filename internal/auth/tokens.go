package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidAccessToken  = errors.New("invalid access token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// TokenManager signs and verifies the two token kinds. Access and refresh tokens
// carry distinct secrets and TTLs so a leaked access token can never be replayed
// against the refresh endpoint.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenManager(accessSecret, refreshSecret string) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
	}
}

func (m *TokenManager) WithTTLs(accessTTL, refreshTTL time.Duration) {
	if accessTTL > 0 {
		m.accessTTL = accessTTL
	}
	if refreshTTL > 0 {
		m.refreshTTL = refreshTTL
	}
}

func (m *TokenManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

func (m *TokenManager) SignAccess(userID string) (string, int64, error) {
	encoded, err := m.sign(userID, "access", m.accessSecret, m.accessTTL)
	if err != nil {
		return "", 0, err
	}
	return encoded, int64(m.accessTTL.Seconds()), nil
}

func (m *TokenManager) SignRefresh(userID string) (string, time.Time, error) {
	expiresAt := time.Now().UTC().Add(m.refreshTTL)
	encoded, err := m.sign(userID, "refresh", m.refreshSecret, m.refreshTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return encoded, expiresAt, nil
}

func (m *TokenManager) sign(userID, typ string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"typ": typ,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return encoded, nil
}

// VerifyAccess checks signature, expiry and token kind, returning the user id.
func (m *TokenManager) VerifyAccess(tokenStr string) (string, error) {
	userID, err := verify(tokenStr, "access", m.accessSecret)
	if err != nil {
		return "", ErrInvalidAccessToken
	}
	return userID, nil
}

// VerifyRefresh distinguishes expiry from every other failure so the handler can
// answer with the matching message.
func (m *TokenManager) VerifyRefresh(tokenStr string) (string, error) {
	userID, err := verify(tokenStr, "refresh", m.refreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrRefreshTokenExpired
		}
		return "", ErrInvalidRefreshToken
	}
	return userID, nil
}

func verify(tokenStr, typ string, secret []byte) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token is not valid")
	}
	if tokenType, _ := claims["typ"].(string); tokenType != typ {
		return "", errors.New("unexpected token type")
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return "", errors.New("missing subject claim")
	}
	return userID, nil
}
