package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is used when JWTConfig.AccessTokenTTL is unset.
const DefaultAccessTokenTTL = 15 * time.Minute

// DefaultIssuer is stamped on tokens when no issuer is configured.
const DefaultIssuer = "tenantguard"

var (
	errMissingSecret  = errors.New("jwt: secret must be provided")
	errMissingSubject = errors.New("jwt: user id is required")
	errEmptyToken     = errors.New("jwt: token string is empty")
	errWrongIssuer    = errors.New("jwt: invalid issuer")
)

// JWTConfig configures token signing and verification.
type JWTConfig struct {
	Secret         string
	Issuer         string
	Audience       string
	AccessTokenTTL time.Duration
	Clock          func() time.Time
}

// Claims carries the caller identity consumed by the permission gate.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the subject of an issued access token.
type Identity struct {
	UserID   string
	Username string
}

// JWTService issues and verifies HS256 access tokens.
type JWTService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errMissingSecret
	}

	svc := &JWTService{
		secret:   []byte(cfg.Secret),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		ttl:      cfg.AccessTokenTTL,
		now:      cfg.Clock,
	}
	if svc.issuer == "" {
		svc.issuer = DefaultIssuer
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultAccessTokenTTL
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// SecretLength reports the signing secret size in bytes.
func (s *JWTService) SecretLength() int {
	return len(s.secret)
}

// GenerateAccessToken signs a token for identity valid for the configured TTL.
func (s *JWTService) GenerateAccessToken(identity Identity) (string, error) {
	userID := strings.TrimSpace(identity.UserID)
	if userID == "" {
		return "", errMissingSubject
	}

	issuedAt := s.now()
	claims := Claims{
		UserID:   userID,
		Username: strings.TrimSpace(identity.Username),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken verifies signature, lifetime, issuer and audience and returns the claims.
func (s *JWTService) ValidateAccessToken(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errEmptyToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.audience != "" {
		options = append(options, jwt.WithAudience(s.audience))
	}

	var claims Claims
	if _, err := jwt.NewParser(options...).ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if claims.Issuer != s.issuer {
		return nil, errWrongIssuer
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errMissingSubject
	}
	return &claims, nil
}
