// Package services contains the ledger's business logic. This file
// implements AuthService: credential checks, session issuance and the
// revocation-aware authentication of session tokens.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/dmitrijs2005/pocketledger/internal/cryptox"
	"github.com/dmitrijs2005/pocketledger/internal/logging"
	"github.com/dmitrijs2005/pocketledger/internal/server/auth"
	"github.com/dmitrijs2005/pocketledger/internal/server/models"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/repomanager"
)

// Session is what a successful login hands back to the client.
type Session struct {
	Token     string
	ExpiresIn time.Duration
}

// AuthService verifies credentials and session tokens.
//
// A token is valid while its signature and expiry check out and the
// revocation marker it carries still equals the user's current marker.
// Users are always read fresh from the store so a committed marker rotation
// is seen by every later Authenticate call.
type AuthService struct {
	repos      repomanager.RepositoryManager
	codec      *auth.Codec
	hasher     *cryptox.Hasher
	sessionTTL time.Duration
	log        logging.Logger

	// compared against when the user does not exist so that absence and
	// mismatch take the same time
	dummyHash []byte
}

// NewAuthService constructs an AuthService issuing sessions valid for sessionTTL.
func NewAuthService(repos repomanager.RepositoryManager, codec *auth.Codec, hasher *cryptox.Hasher,
	sessionTTL time.Duration, log logging.Logger) (*AuthService, error) {
	dummy, err := hasher.Hash("pocketledger-dummy-password")
	if err != nil {
		return nil, err
	}
	return &AuthService{
		repos:      repos,
		codec:      codec,
		hasher:     hasher,
		sessionTTL: sessionTTL,
		log:        log,
		dummyHash:  dummy,
	}, nil
}

// VerifyCredentials reports whether password belongs to username. ok is
// false both for unknown users and for wrong passwords; err is reserved
// for store failures.
func (s *AuthService) VerifyCredentials(ctx context.Context, username, password string) (*models.User, bool, error) {
	user, err := s.repos.Users().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Compare(s.dummyHash, password)
			return nil, false, nil
		}
		return nil, false, common.Internal(err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, false, nil
	}
	return user, true, nil
}

// IssueSession signs a token bound to the user's current revocation marker.
func (s *AuthService) IssueSession(user *models.User, ttl time.Duration) (string, error) {
	token, err := s.codec.IssueSession(user.ID, user.RevocationMarker, ttl)
	if err != nil {
		return "", common.Internal(err)
	}
	return token, nil
}

// Login checks the credentials and issues a session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, common.ErrCredentialsMissing
	}

	user, ok, err := s.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrCredentialsWrong
	}

	token, err := s.IssueSession(user, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresIn: s.sessionTTL}, nil
}

// Authenticate resolves a session token to its user. Every rejection is
// reported as NotAuthenticated (or NoToken for an empty token); the reason
// is only logged at debug level.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrNoToken
	}

	claims, err := s.codec.VerifySession(token)
	if err != nil {
		s.log.Debug(ctx, "session rejected", "reason", "decode")
		return nil, common.ErrNotAuthenticated
	}

	user, err := s.repos.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Debug(ctx, "session rejected", "reason", "unknown user")
			return nil, common.ErrNotAuthenticated
		}
		return nil, common.Internal(err)
	}

	if subtle.ConstantTimeCompare([]byte(user.RevocationMarker), []byte(claims.Marker)) != 1 {
		s.log.Debug(ctx, "session rejected", "reason", "revoked", "user_id", user.ID)
		return nil, common.ErrNotAuthenticated
	}
	return user, nil
}

// RequireAdmin authenticates token and requires the admin flag.
func (s *AuthService) RequireAdmin(ctx context.Context, token string) (*models.User, error) {
	user, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, common.ErrNotAdmin
	}
	return user, nil
}
