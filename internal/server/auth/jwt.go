// Package auth signs and verifies the HS256 tokens handed to clients:
// session tokens bound to a revocation marker, and short-lived email
// verification tokens.
package auth

import (
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const (
	AudienceSession           = "session"
	AudienceEmailVerification = "email-verification"
)

// SessionClaims carries the user and the revocation marker current when the
// token was issued.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Marker string `json:"mrk"`
}

// EmailClaims binds a verification link to one user and one address.
type EmailClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Email  string `json:"email"`
}

// Codec issues and verifies tokens with a secret fixed at construction.
type Codec struct {
	secret []byte
	now    func() time.Time
}

type Option func(*Codec)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(secret []byte, opts ...Option) *Codec {
	c := &Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Codec) registered(audience, subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := c.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (c *Codec) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// parse verifies signature, algorithm, expiry and audience. Every failure
// collapses into common.ErrInvalidToken.
func (c *Codec) parse(tokenString, audience string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}

// IssueSession returns a session token for userID valid for ttl.
func (c *Codec) IssueSession(userID, marker string, ttl time.Duration) (string, error) {
	return c.sign(SessionClaims{
		RegisteredClaims: c.registered(AudienceSession, userID, ttl),
		UserID:           userID,
		Marker:           marker,
	})
}

// VerifySession checks a session token. It does not consult storage, so the
// caller must still compare the marker with the user's current one.
func (c *Codec) VerifySession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := c.parse(tokenString, AudienceSession, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (c *Codec) IssueEmailVerification(userID, email string, ttl time.Duration) (string, error) {
	return c.sign(EmailClaims{
		RegisteredClaims: c.registered(AudienceEmailVerification, userID, ttl),
		UserID:           userID,
		Email:            email,
	})
}

func (c *Codec) VerifyEmailVerification(tokenString string) (*EmailClaims, error) {
	claims := &EmailClaims{}
	if err := c.parse(tokenString, AudienceEmailVerification, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.Email == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
