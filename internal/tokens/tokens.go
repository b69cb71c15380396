// Package tokens issues and verifies the two bearer token kinds.
//
// A long token binds an identity and is obtained at login or user creation.
// A short token is derived from a valid long token and additionally carries a
// session id and the fingerprint of the requesting device. The kinds are
// signed with distinct secrets and carry distinct audiences, so one never
// verifies as the other.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/telhawk-systems/schoolhub/internal/models"
)

var (
	// ErrMissingToken is returned when no long token was presented.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalid is returned when a presented token fails verification.
	ErrInvalid = errors.New("invalid")

	ErrInvalidIdentity = errors.New("identity cannot be encoded in a token")
	ErrSecretRequired  = errors.New("token secrets must be non-empty")
	ErrSecretsEqual    = errors.New("long and short token secrets must differ")
	ErrTTL             = errors.New("token lifetimes must be positive")
)

// Kind distinguishes the two token tiers. It is stored as the audience claim.
type Kind string

const (
	KindLong  Kind = "long"
	KindShort Kind = "short"
)

const (
	DefaultLongTTL  = 3 * 365 * 24 * time.Hour
	DefaultShortTTL = 365 * 24 * time.Hour
	DefaultIssuer   = "schoolhub"
)

// Config holds the signing material and lifetimes.
type Config struct {
	LongSecret  string
	ShortSecret string
	LongTTL     time.Duration
	ShortTTL    time.Duration
	Issuer      string
}

// ShortPayload is the verified content of a short token.
type ShortPayload struct {
	models.Identity
	SessionID         string    `json:"sessionId"`
	DeviceFingerprint string    `json:"deviceFingerprint"`
	ExpiresAt         time.Time `json:"-"`
}

type longClaims struct {
	UserID   string      `json:"userId"`
	Role     models.Role `json:"role"`
	SchoolID string      `json:"schoolId,omitempty"`
	jwt.RegisteredClaims
}

type shortClaims struct {
	UserID            string      `json:"userId"`
	Role              models.Role `json:"role"`
	SchoolID          string      `json:"schoolId,omitempty"`
	SessionID         string      `json:"sessionId"`
	DeviceFingerprint string      `json:"deviceFingerprint"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens. It holds no mutable state.
type Service struct {
	longSecret  []byte
	shortSecret []byte
	longTTL     time.Duration
	shortTTL    time.Duration
	issuer      string
	now         func() time.Time
	newSession  func() string
}

// NewService validates cfg and returns a Service. Zero lifetimes fall back to
// the defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.LongSecret == "" || cfg.ShortSecret == "" {
		return nil, ErrSecretRequired
	}
	if cfg.LongSecret == cfg.ShortSecret {
		return nil, ErrSecretsEqual
	}
	if cfg.LongTTL == 0 {
		cfg.LongTTL = DefaultLongTTL
	}
	if cfg.ShortTTL == 0 {
		cfg.ShortTTL = DefaultShortTTL
	}
	if cfg.LongTTL < 0 || cfg.ShortTTL < 0 {
		return nil, ErrTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}

	return &Service{
		longSecret:  []byte(cfg.LongSecret),
		shortSecret: []byte(cfg.ShortSecret),
		longTTL:     cfg.LongTTL,
		shortTTL:    cfg.ShortTTL,
		issuer:      cfg.Issuer,
		now:         time.Now,
		newSession:  func() string { return uuid.NewString() },
	}, nil
}

func validIdentity(id models.Identity) error {
	if id.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidIdentity)
	}
	if !id.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidIdentity, id.Role)
	}
	if id.Role == models.RoleSchooladmin && id.SchoolID == "" {
		return fmt.Errorf("%w: schooladmin without school", ErrInvalidIdentity)
	}
	return nil
}

func (s *Service) registered(kind Kind, subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{string(kind)},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// IssueLongToken signs identity with the long secret.
func (s *Service) IssueLongToken(id models.Identity) (string, error) {
	if err := validIdentity(id); err != nil {
		return "", err
	}
	if id.Role == models.RoleSuperadmin {
		id.SchoolID = ""
	}

	claims := longClaims{
		UserID:           id.UserID,
		Role:             id.Role,
		SchoolID:         id.SchoolID,
		RegisteredClaims: s.registered(KindLong, id.UserID, s.longTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.longSecret)
}

// IssueShortToken signs identity plus a fresh session id and the device
// fingerprint with the short secret.
func (s *Service) IssueShortToken(id models.Identity, fingerprint string) (string, error) {
	if err := validIdentity(id); err != nil {
		return "", err
	}
	if id.Role == models.RoleSuperadmin {
		id.SchoolID = ""
	}

	claims := shortClaims{
		UserID:            id.UserID,
		Role:              id.Role,
		SchoolID:          id.SchoolID,
		SessionID:         s.newSession(),
		DeviceFingerprint: fingerprint,
		RegisteredClaims:  s.registered(KindShort, id.UserID, s.shortTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.shortSecret)
}

func (s *Service) parse(raw string, claims jwt.Claims, secret []byte, kind Kind) error {
	if raw == "" {
		return ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(string(kind)),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !token.Valid {
		return ErrInvalid
	}
	return nil
}

// VerifyLongToken returns the identity bound to a long token. Any failure,
// including a short token presented in its place, yields ErrInvalid.
func (s *Service) VerifyLongToken(raw string) (*models.Identity, error) {
	var claims longClaims
	if err := s.parse(raw, &claims, s.longSecret, KindLong); err != nil {
		return nil, err
	}

	id := models.Identity{UserID: claims.UserID, Role: claims.Role, SchoolID: claims.SchoolID}
	if err := validIdentity(id); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &id, nil
}

// VerifyShortToken returns the payload of a short token.
func (s *Service) VerifyShortToken(raw string) (*ShortPayload, error) {
	var claims shortClaims
	if err := s.parse(raw, &claims, s.shortSecret, KindShort); err != nil {
		return nil, err
	}

	id := models.Identity{UserID: claims.UserID, Role: claims.Role, SchoolID: claims.SchoolID}
	if err := validIdentity(id); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session", ErrInvalid)
	}

	payload := &ShortPayload{
		Identity:          id,
		SessionID:         claims.SessionID,
		DeviceFingerprint: claims.DeviceFingerprint,
	}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time
	}
	return payload, nil
}

// CreateShortTokenFromLong exchanges a valid long token for a short token
// bound to fingerprint.
func (s *Service) CreateShortTokenFromLong(longToken, fingerprint string) (string, error) {
	if longToken == "" {
		return "", ErrMissingToken
	}
	id, err := s.VerifyLongToken(longToken)
	if err != nil {
		return "", ErrInvalid
	}
	return s.IssueShortToken(*id, fingerprint)
}

// Verify accepts either kind, trying the long secret first. The session is
// nil for long tokens.
func (s *Service) Verify(raw string) (*models.Identity, *ShortPayload, error) {
	if raw == "" {
		return nil, nil, ErrMissingToken
	}
	if id, err := s.VerifyLongToken(raw); err == nil {
		return id, nil, nil
	}
	payload, err := s.VerifyShortToken(raw)
	if err != nil {
		return nil, nil, err
	}
	id := payload.Identity
	return &id, payload, nil
}

// LongTTL returns the configured long token lifetime.
func (s *Service) LongTTL() time.Duration { return s.longTTL }

// ShortTTL returns the configured short token lifetime.
func (s *Service) ShortTTL() time.Duration { return s.shortTTL }
