package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"hongdating/internal/config"
	"hongdating/internal/models"
	"hongdating/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL = 30 * 24 * time.Hour
	wsTicketTTL     = 60 * time.Second
	deviceSecretLen = 32
)

// AuthResult is returned by sign-in flows. DeviceSecret is only set when the
// identity was just created.
type AuthResult struct {
	Token        string       `json:"token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	DeviceID     string       `json:"device_id"`
	DeviceSecret string       `json:"device_secret,omitempty"`
	User         *models.User `json:"user"`
}

// Claims are the verified parts of an access token.
type Claims struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

type AuthService struct {
	userRepo repository.UserRepository
	rdb      *redis.Client
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, rdb *redis.Client, cfg *config.Config) *AuthService {
	ttl := cfg.JWTTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{
		userRepo: userRepo,
		rdb:      rdb,
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Anonymous creates a fresh identity and signs it in.
func (s *AuthService) Anonymous(ctx context.Context) (*AuthResult, error) {
	secret, err := randomHex(deviceSecretLen)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		DeviceID:         uuid.NewString(),
		DeviceSecretHash: string(hash),
		Interests:        models.StringList{},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, exp, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:        token,
		ExpiresAt:    exp,
		DeviceID:     user.DeviceID,
		DeviceSecret: secret,
		User:         user,
	}, nil
}

// Resume signs an existing device back in.
func (s *AuthService) Resume(ctx context.Context, deviceID, secret string) (*AuthResult, error) {
	if deviceID == "" || secret == "" {
		return nil, models.NewValidationError("device_id and device_secret are required")
	}
	user, err := s.userRepo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.DeviceSecretHash), []byte(secret)) != nil {
		return nil, models.NewUnauthorizedError("Invalid device credentials")
	}

	token, exp, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: exp, DeviceID: user.DeviceID, User: user}, nil
}

// IssueToken signs an HS256 access token for userID.
func (s *AuthService) IssueToken(userID uint) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, models.NewInternalError(err)
	}
	return signed, exp, nil
}

// ParseToken verifies signature, method, issuer, audience and expiry.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	var rc jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &rc, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	userID, err := strconv.ParseUint(rc.Subject, 10, 32)
	if err != nil || userID == 0 {
		return nil, models.NewUnauthorizedError("Invalid user ID in token")
	}
	claims := &Claims{UserID: uint(userID), JTI: rc.ID}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	return claims, nil
}

func blacklistKey(jti string) string { return "blacklist:" + jti }

// Revoke blacklists a token until it would have expired anyway.
func (s *AuthService) Revoke(ctx context.Context, claims *Claims) error {
	if s.rdb == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, blacklistKey(claims.JTI), "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// IsRevoked reports whether jti was blacklisted. Redis failures fail open.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) bool {
	if s.rdb == nil || jti == "" {
		return false
	}
	n, err := s.rdb.Exists(ctx, blacklistKey(jti)).Result()
	return err == nil && n > 0
}

func ticketKey(ticket string) string { return "ws_ticket:" + ticket }

// IssueTicket returns a single-use ticket for the websocket handshake.
func (s *AuthService) IssueTicket(ctx context.Context, userID uint) (string, time.Duration, error) {
	if s.rdb == nil {
		return "", 0, models.NewInternalError(errors.New("websocket tickets require redis"))
	}
	ticket := uuid.NewString()
	if err := s.rdb.Set(ctx, ticketKey(ticket), userID, wsTicketTTL).Err(); err != nil {
		return "", 0, models.NewInternalError(err)
	}
	return ticket, wsTicketTTL, nil
}

// RedeemTicket consumes ticket and returns its user.
func (s *AuthService) RedeemTicket(ctx context.Context, ticket string) (uint, error) {
	if s.rdb == nil || ticket == "" {
		return 0, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	raw, err := s.rdb.GetDel(ctx, ticketKey(ticket)).Result()
	if err != nil {
		return 0, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	userID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	return uint(userID), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
