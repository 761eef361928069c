package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := NewTokenService(testSecret, "membership-backend", time.Hour)
	userID, orgID := uuid.New(), uuid.New()

	issued, err := svc.Issue(userID, []string{"Member", "Branch Admin"}, &orgID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Sub)
	assert.Equal(t, []string{"Member", "Branch Admin"}, claims.Roles)
	require.NotNil(t, claims.OrgID)
	assert.Equal(t, orgID, *claims.OrgID)
	assert.Equal(t, issued.ExpiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestTokenService_NullOrgClaim(t *testing.T) {
	svc := NewTokenService(testSecret, "", time.Hour)

	issued, err := svc.Issue(uuid.New(), nil, nil)
	require.NoError(t, err)

	payload := decodePayload(t, issued.AccessToken)
	assert.Contains(t, payload, "org_id")
	assert.Nil(t, payload["org_id"])
	assert.Equal(t, []interface{}{}, payload["roles"])
	assert.Equal(t, "HS256", decodeHeader(t, issued.AccessToken)["alg"])

	claims, err := svc.ValidateToken(issued.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, claims.OrgID)
}

func TestTokenService_DefaultExpiry(t *testing.T) {
	svc := NewTokenService(testSecret, "", 0)

	issued, err := svc.Issue(uuid.New(), nil, nil)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenExpiry), issued.ExpiresAt, 5*time.Second)
}

func TestTokenService_ValidateFailures(t *testing.T) {
	svc := NewTokenService(testSecret, "membership-backend", time.Hour)
	userID := uuid.New()

	expired, err := svc.IssueWithExpiry(userID, []string{"Member"}, nil, -time.Minute)
	require.NoError(t, err)

	otherKey := NewTokenService("another-secret", "membership-backend", time.Hour)
	forged, err := otherKey.Issue(userID, []string{"Super Admin"}, nil)
	require.NoError(t, err)

	expiredForged, err := otherKey.IssueWithExpiry(userID, []string{"Super Admin"}, nil, -time.Minute)
	require.NoError(t, err)

	wrongIssuer, err := NewTokenService(testSecret, "someone-else", time.Hour).Issue(userID, nil, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"missing", "", ErrMissingToken},
		{"malformed", "not.a.jwt", ErrInvalidToken},
		{"expired", expired.AccessToken, ErrTokenExpired},
		{"bad signature", forged.AccessToken, ErrInvalidToken},
		{"wrong issuer", wrongIssuer.AccessToken, ErrInvalidToken},
		{"alg none", unsignedToken(t, userID), ErrInvalidToken},
		{"rs256", rsaToken(t, userID), ErrInvalidToken},
		{"no expiry", signedWithout(t, userID), ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("expired with bad signature", func(t *testing.T) {
		_, err := svc.ValidateToken(expiredForged.AccessToken)
		assert.Error(t, err)
	})
}

func TestTokenService_ExpiryUsesClock(t *testing.T) {
	svc := NewTokenService(testSecret, "", time.Hour)
	issued, err := svc.Issue(uuid.New(), nil, nil)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(issued.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func unsignedToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    "membership-backend",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return s
}

func rsaToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    "membership-backend",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func signedWithout(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: userID.String(),
		Issuer:  "membership-backend",
	}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func decodeHeader(t *testing.T, token string) map[string]interface{} {
	return decodeSegment(t, strings.Split(token, ".")[0])
}

func decodePayload(t *testing.T, token string) map[string]interface{} {
	return decodeSegment(t, strings.Split(token, ".")[1])
}

func decodeSegment(t *testing.T, seg string) map[string]interface{} {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
