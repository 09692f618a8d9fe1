package service

import (
	"context"
	"testing"
	"time"

	"hongdating/internal/config"
	"hongdating/internal/models"
	"hongdating/internal/repository"
	"hongdating/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuthService(t *testing.T) (*AuthService, repository.UserRepository) {
	t.Helper()
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	repo := repository.NewUserRepository(db)
	cfg := &config.Config{
		JWTSecret:   testSecret,
		JWTIssuer:   "hongdating-api",
		JWTAudience: "hongdating-app",
		JWTTTL:      time.Hour,
	}
	return NewAuthService(repo, rdb, cfg), repo
}

func TestAuthService_AnonymousAndResume(t *testing.T) {
	svc, repo := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Anonymous(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, res.DeviceID)
	assert.Len(t, res.DeviceSecret, deviceSecretLen*2)
	assert.False(t, res.User.ProfileCompleted)

	stored, err := repo.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, res.DeviceSecret, stored.DeviceSecretHash)

	claims, err := svc.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.NotEmpty(t, claims.JTI)

	resumed, err := svc.Resume(ctx, res.DeviceID, res.DeviceSecret)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, resumed.User.ID)
	assert.Empty(t, resumed.DeviceSecret)

	_, err = svc.Resume(ctx, res.DeviceID, "wrong")
	assertCode(t, err, models.CodeUnauthorized)
	_, err = svc.Resume(ctx, "missing-device", res.DeviceSecret)
	assertCode(t, err, models.CodeUnauthorized)
	_, err = svc.Resume(ctx, "", "")
	assertCode(t, err, models.CodeValidation)
}

func TestAuthService_ParseTokenRejectsForeignTokens(t *testing.T) {
	svc, _ := newAuthService(t)

	sign := func(claims jwt.RegisteredClaims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := func() jwt.RegisteredClaims {
		now := time.Now()
		return jwt.RegisteredClaims{
			Subject:   "7",
			Issuer:    "hongdating-api",
			Audience:  jwt.ClaimStrings{"hongdating-app"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        "jti",
		}
	}

	good := sign(base(), jwt.SigningMethodHS256, []byte(testSecret))
	claims, err := svc.ParseToken(good)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)

	wrongIssuer := base()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := base()
	wrongAudience.Audience = jwt.ClaimStrings{"other-app"}
	expired := base()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	badSubject := base()
	badSubject.Subject = "abc"

	cases := map[string]string{
		"wrong issuer":   sign(wrongIssuer, jwt.SigningMethodHS256, []byte(testSecret)),
		"wrong audience": sign(wrongAudience, jwt.SigningMethodHS256, []byte(testSecret)),
		"expired":        sign(expired, jwt.SigningMethodHS256, []byte(testSecret)),
		"bad subject":    sign(badSubject, jwt.SigningMethodHS256, []byte(testSecret)),
		"wrong secret":   sign(base(), jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx")),
		"wrong method":   sign(base(), jwt.SigningMethodHS512, []byte(testSecret)),
		"garbage":        "not.a.token",
	}
	for name, token := range cases {
		_, err := svc.ParseToken(token)
		assert.True(t, models.IsCode(err, models.CodeUnauthorized), name)
	}
}

func TestAuthService_RevokeAndTickets(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	token, _, err := svc.IssueToken(3)
	require.NoError(t, err)
	claims, err := svc.ParseToken(token)
	require.NoError(t, err)

	assert.False(t, svc.IsRevoked(ctx, claims.JTI))
	require.NoError(t, svc.Revoke(ctx, claims))
	assert.True(t, svc.IsRevoked(ctx, claims.JTI))

	ticket, ttl, err := svc.IssueTicket(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, wsTicketTTL, ttl)

	uid, err := svc.RedeemTicket(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, uint(3), uid)

	_, err = svc.RedeemTicket(ctx, ticket)
	assertCode(t, err, models.CodeUnauthorized)
}

func TestAuthService_NoRedis(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAuthService(repository.NewUserRepository(db), nil, &config.Config{JWTSecret: testSecret})
	ctx := context.Background()

	assert.NoError(t, svc.Revoke(ctx, &Claims{JTI: "x", ExpiresAt: time.Now().Add(time.Hour)}))
	assert.False(t, svc.IsRevoked(ctx, "x"))
	_, _, err := svc.IssueTicket(ctx, 1)
	assertCode(t, err, models.CodeInternal)
	assert.Equal(t, defaultTokenTTL, svc.ttl)
}
