package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/dmitrijs2005/pocketledger/internal/cryptox"
	"github.com/dmitrijs2005/pocketledger/internal/logging"
	"github.com/dmitrijs2005/pocketledger/internal/server/auth"
	"github.com/dmitrijs2005/pocketledger/internal/server/models"
	"github.com/dmitrijs2005/pocketledger/internal/server/notify"
	"github.com/dmitrijs2005/pocketledger/internal/server/passwordpolicy"
	"github.com/dmitrijs2005/pocketledger/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
)

const (
	// revocation markers are 16 random bytes, hex encoded
	markerBytes = 16

	maxUpdateAttempts = 3

	SettingRecoveryMethod        = "recoveryMethod"
	SettingEmail                 = "email"
	SettingTransactionLogging    = "transactionLogging"
	SettingSMSNotificationNumber = "smsNotificationNumber"
)

// CreateAccountRequest carries the fields of a sign-up.
type CreateAccountRequest struct {
	Username       string
	Password       string
	RecoveryMethod string
	Email          string
}

// CreateAccountResult holds the new user and, for phrase recovery, the
// plaintext phrase. The phrase is never retrievable again.
type CreateAccountResult struct {
	User   *models.User
	Phrase []string
}

// SettingsView is the client-visible projection of a user's settings.
type SettingsView struct {
	TransactionLogging    bool                  `json:"transactionLogging"`
	SMSNotificationNumber *string               `json:"smsNotificationNumber"`
	RecoveryMethod        models.RecoveryMethod `json:"recoveryMethod"`
	Email                 string                `json:"email,omitempty"`
	EmailVerified         bool                  `json:"emailVerified,omitempty"`
}

// SettingsPatch is a parsed settings update. Nil fields are left alone;
// ClearSMS removes the stored SMS number.
type SettingsPatch struct {
	RecoveryMethod        *models.RecoveryMethod
	Email                 *string
	TransactionLogging    *bool
	SMSNotificationNumber *string
	ClearSMS              bool
}

// AccountOptions configures AccountService.
type AccountOptions struct {
	EmailTokenTTL time.Duration
	PublicBaseURL string
}

// AccountService manages the account lifecycle.
type AccountService struct {
	repos    repomanager.RepositoryManager
	policy   passwordpolicy.Policy
	hasher   *cryptox.Hasher
	codec    *auth.Codec
	notifier notify.Notifier
	log      logging.Logger
	opts     AccountOptions
	validate *validator.Validate

	newPhrase func() ([]string, error)
	newMarker func() (string, error)
}

func NewAccountService(repos repomanager.RepositoryManager, policy passwordpolicy.Policy, hasher *cryptox.Hasher,
	codec *auth.Codec, notifier notify.Notifier, log logging.Logger, opts AccountOptions) *AccountService {
	return &AccountService{
		repos:     repos,
		policy:    policy,
		hasher:    hasher,
		codec:     codec,
		notifier:  notifier,
		log:       log,
		opts:      opts,
		validate:  validator.New(),
		newPhrase: cryptox.NewRecoveryPhrase,
		newMarker: func() (string, error) { return common.MakeRandHexString(markerBytes) },
	}
}

func (s *AccountService) validEmail(addr string) bool {
	return s.validate.Var(addr, "required,email") == nil
}

// phraseRecovery generates a phrase and its stored form.
func (s *AccountService) phraseRecovery() ([]string, models.PhraseRecovery, error) {
	words, err := s.newPhrase()
	if err != nil {
		return nil, models.PhraseRecovery{}, err
	}
	hash, err := s.hasher.Hash(cryptox.JoinPhrase(words))
	if err != nil {
		return nil, models.PhraseRecovery{}, err
	}
	return words, models.PhraseRecovery{Hash: hash}, nil
}

// Create registers a new account. Checks run in a fixed order and the first
// failure is returned.
func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest) (*CreateAccountResult, error) {
	username := common.NormalizeUsername(req.Username)
	if username == "" || req.Password == "" || req.RecoveryMethod == "" {
		return nil, common.ErrFieldsMissing
	}
	if strings.ContainsAny(username, "_ ") {
		return nil, common.ErrUsernameInvalid
	}

	_, err := s.repos.Users().GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, common.ErrUserExists
	case !errors.Is(err, common.ErrorNotFound):
		return nil, common.Internal(err)
	}

	if !s.policy.Acceptable(req.Password, username) {
		return nil, common.ErrPasswordTooWeak
	}

	method, ok := models.ParseRecoveryMethod(req.RecoveryMethod)
	if !ok {
		return nil, common.ErrRecoveryMethodInvalid
	}
	email := strings.TrimSpace(req.Email)
	if method == models.RecoveryEmail && !s.validEmail(email) {
		return nil, common.ErrEmailMissingInvalid
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, common.Internal(err)
	}
	marker, err := s.newMarker()
	if err != nil {
		return nil, common.Internal(err)
	}

	user := &models.User{
		Username:         username,
		PasswordHash:     passwordHash,
		RevocationMarker: marker,
	}

	var phrase []string
	if method == models.RecoveryPhrase {
		var rec models.PhraseRecovery
		phrase, rec, err = s.phraseRecovery()
		if err != nil {
			return nil, common.Internal(err)
		}
		user.Recovery = rec
	} else {
		user.Recovery = models.EmailRecovery{Address: email}
	}

	created, err := s.repos.Users().Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUsername) {
			return nil, common.ErrUserExists
		}
		return nil, common.Internal(err)
	}

	if method == models.RecoveryEmail {
		s.sendVerification(ctx, created, email)
	}

	s.log.Info(ctx, "account created", "user_id", created.ID, "recovery", string(method))
	return &CreateAccountResult{User: created, Phrase: phrase}, nil
}

// sendVerification hands a confirmation link to the notifier. Failures are
// logged; they never fail the calling operation.
func (s *AccountService) sendVerification(ctx context.Context, user *models.User, email string) {
	token, err := s.codec.IssueEmailVerification(user.ID, email, s.opts.EmailTokenTTL)
	if err != nil {
		s.log.Error(ctx, "failed to issue verification token", "user_id", user.ID, "error", err)
		return
	}

	link := strings.TrimRight(s.opts.PublicBaseURL, "/") + "/user/confirmEmail?token=" + url.QueryEscape(token)
	msg := notify.VerificationMessage{UserID: user.ID, Username: user.Username, Email: email, Link: link}
	if err := s.notifier.SendVerification(ctx, msg); err != nil {
		s.log.Error(ctx, "failed to send verification", "user_id", user.ID, "error", err)
	}
}

// Settings projects the user's settings. No recovery secret is exposed.
func (s *AccountService) Settings(user *models.User) SettingsView {
	view := SettingsView{
		TransactionLogging: user.Settings.TransactionLogging,
		RecoveryMethod:     user.RecoveryMethod(),
	}
	if n := user.Settings.SMSNotificationNumber; n != nil {
		v := *n
		view.SMSNotificationNumber = &v
	}
	if e, ok := user.Recovery.(models.EmailRecovery); ok {
		view.Email = e.Address
		view.EmailVerified = e.Verified
	}
	return view
}

func parseBoolSetting(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch b {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// ParseSettingsPatch converts a decoded JSON object into a SettingsPatch.
// Keys are processed in sorted order so the reported error is stable.
func ParseSettingsPatch(raw map[string]any) (SettingsPatch, error) {
	var patch SettingsPatch

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		switch key {
		case SettingRecoveryMethod:
			if value == nil {
				continue
			}
			s, _ := value.(string)
			method, ok := models.ParseRecoveryMethod(s)
			if !ok {
				return SettingsPatch{}, common.ErrInvalidRecoveryMethod
			}
			patch.RecoveryMethod = &method
		case SettingEmail:
			s, ok := value.(string)
			if !ok {
				return SettingsPatch{}, common.ErrInvalidSetting
			}
			s = strings.TrimSpace(s)
			patch.Email = &s
		case SettingTransactionLogging:
			b, ok := parseBoolSetting(value)
			if !ok {
				return SettingsPatch{}, common.ErrInvalidSetting
			}
			patch.TransactionLogging = &b
		case SettingSMSNotificationNumber:
			switch n := value.(type) {
			case nil:
				patch.ClearSMS = true
			case string:
				if n == "" {
					patch.ClearSMS = true
				} else {
					patch.SMSNotificationNumber = &n
				}
			default:
				return SettingsPatch{}, common.ErrInvalidSetting
			}
		default:
			return SettingsPatch{}, common.ErrInvalidSetting
		}
	}

	if patch.Email != nil && (patch.RecoveryMethod == nil || *patch.RecoveryMethod != models.RecoveryEmail) {
		return SettingsPatch{}, common.ErrInvalidSetting
	}
	return patch, nil
}

// mutate reloads the user, applies fn and writes the result with a
// version check, retrying from a fresh read when another writer won.
func (s *AccountService) mutate(ctx context.Context, userID string, fn func(u *models.User) error) (*models.User, error) {
	for attempt := 1; ; attempt++ {
		u, err := s.repos.Users().GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrNotAuthenticated
			}
			return nil, common.Internal(err)
		}

		if err := fn(u); err != nil {
			return nil, err
		}

		err = s.repos.Users().Update(ctx, u)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, common.ErrVersionConflict) || attempt >= maxUpdateAttempts {
			return nil, common.Internal(err)
		}
		s.log.Debug(ctx, "version conflict, retrying", "user_id", userID, "attempt", attempt)
	}
}

// ApplySettings validates the whole patch and persists it in one write.
// A switch to phrase recovery returns the new phrase.
func (s *AccountService) ApplySettings(ctx context.Context, user *models.User, patch SettingsPatch) ([]string, error) {
	var (
		phrase    []string
		sendEmail string
	)

	updated, err := s.mutate(ctx, user.ID, func(u *models.User) error {
		phrase, sendEmail = nil, ""

		if patch.RecoveryMethod != nil {
			switch *patch.RecoveryMethod {
			case models.RecoveryPhrase:
				words, rec, err := s.phraseRecovery()
				if err != nil {
					return common.Internal(err)
				}
				phrase = words
				u.Recovery = rec
			case models.RecoveryEmail:
				current, hasCurrent := u.RecoveryEmail()
				addr := current
				if patch.Email != nil {
					addr = *patch.Email
				}
				if addr == "" || !s.validEmail(addr) {
					return common.ErrEmailMissingInvalid
				}
				verified := false
				if prev, ok := u.Recovery.(models.EmailRecovery); ok && prev.Address == addr {
					verified = prev.Verified
				}
				if !hasCurrent || current != addr {
					sendEmail = addr
				}
				u.Recovery = models.EmailRecovery{Address: addr, Verified: verified}
			}
		}

		if patch.TransactionLogging != nil {
			u.Settings.TransactionLogging = *patch.TransactionLogging
		}
		if patch.ClearSMS {
			u.Settings.SMSNotificationNumber = nil
		} else if patch.SMSNotificationNumber != nil {
			n := *patch.SMSNotificationNumber
			u.Settings.SMSNotificationNumber = &n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sendEmail != "" {
		s.sendVerification(ctx, updated, sendEmail)
	}
	return phrase, nil
}

// ChangePassword replaces the password after checking the old one.
// Existing sessions stay valid; RevokeSessions ends them.
func (s *AccountService) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return common.ErrBadRequest
	}

	_, err := s.mutate(ctx, user.ID, func(u *models.User) error {
		if !s.hasher.Compare(u.PasswordHash, oldPassword) {
			return common.ErrPasswordWrong
		}
		if !s.policy.Acceptable(newPassword, u.Username) {
			return common.ErrPasswordTooWeak
		}
		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return common.Internal(err)
		}
		u.PasswordHash = hash
		return nil
	})
	return err
}

// RevokeSessions rotates the revocation marker, invalidating every session
// token issued so far.
func (s *AccountService) RevokeSessions(ctx context.Context, user *models.User) error {
	marker, err := s.newMarker()
	if err != nil {
		return common.Internal(err)
	}

	_, err = s.mutate(ctx, user.ID, func(u *models.User) error {
		u.RevocationMarker = marker
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "sessions revoked", "user_id", user.ID)
	return nil
}

// ConfirmEmail marks the recovery address as verified. The token must name
// the address currently on file.
func (s *AccountService) ConfirmEmail(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrNoToken
	}
	claims, err := s.codec.VerifyEmailVerification(token)
	if err != nil {
		return common.ErrNotAuthenticated
	}

	_, err = s.mutate(ctx, claims.UserID, func(u *models.User) error {
		rec, ok := u.Recovery.(models.EmailRecovery)
		if !ok || rec.Address != claims.Email {
			return common.ErrEmailMissingInvalid
		}
		rec.Verified = true
		u.Recovery = rec
		return nil
	})
	return err
}

// GrantAdmin sets the admin flag. It is not reachable from the public API;
// the server applies it at startup to the configured admin usernames.
func (s *AccountService) GrantAdmin(ctx context.Context, username string) error {
	existing, err := s.repos.Users().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("grant admin %q: %w", username, err)
		}
		return common.Internal(err)
	}
	if existing.IsAdmin {
		return nil
	}

	_, err = s.mutate(ctx, existing.ID, func(u *models.User) error {
		u.IsAdmin = true
		return nil
	})
	return err
}
