// Package auth issues and validates bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when the token is malformed, badly signed or carries bad claims
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrMissingToken is returned when no bearer token was presented
	ErrMissingToken = errors.New("missing token")
)

// DefaultTokenExpiry is used when the service is built without an explicit expiry
const DefaultTokenExpiry = 24 * time.Hour

// Claims represents the claims carried in an access token
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
	OrgID *string  `json:"org_id"`
}

// ParsedClaims represents parsed and validated claims.
// Roles is a snapshot taken at issue time and is not used for authorization.
type ParsedClaims struct {
	Sub       uuid.UUID
	Roles     []string
	OrgID     *uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is a signed token and its expiry
type IssuedToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// TokenService signs and validates HS256 access tokens
type TokenService struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. A non-positive expiry falls back to DefaultTokenExpiry.
func NewTokenService(secret, issuer string, expiry time.Duration) *TokenService {
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

// Issue signs a token for the user with the default expiry
func (s *TokenService) Issue(userID uuid.UUID, roles []string, orgID *uuid.UUID) (*IssuedToken, error) {
	return s.IssueWithExpiry(userID, roles, orgID, s.expiry)
}

// IssueWithExpiry signs a token valid for ttl from now
func (s *TokenService) IssueWithExpiry(userID uuid.UUID, roles []string, orgID *uuid.UUID, ttl time.Duration) (*IssuedToken, error) {
	now := s.now()
	expiresAt := now.Add(ttl)

	if roles == nil {
		roles = []string{}
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Roles: roles,
	}
	if orgID != nil {
		org := orgID.String()
		claims.OrgID = &org
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{AccessToken: signed, ExpiresAt: expiresAt}, nil
}

// ValidateToken verifies signature, algorithm and expiry and returns the parsed claims
func (s *TokenService) ValidateToken(tokenString string) (*ParsedClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return parseClaims(claims)
}

// parseClaims converts Claims to ParsedClaims with proper type conversions
func parseClaims(claims *Claims) (*ParsedClaims, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid sub: %v", ErrInvalidToken, err)
	}

	parsed := &ParsedClaims{
		Sub:   sub,
		Roles: claims.Roles,
	}
	if claims.OrgID != nil && *claims.OrgID != "" {
		orgID, err := uuid.Parse(*claims.OrgID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid org_id: %v", ErrInvalidToken, err)
		}
		parsed.OrgID = &orgID
	}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}
	return parsed, nil
}
