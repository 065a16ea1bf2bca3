// Package models defines the records shared by the ledger services and the
// repositories that persist them.
package models

import "time"

// RecoveryMethod names the active account recovery mechanism.
type RecoveryMethod string

const (
	RecoveryPhrase RecoveryMethod = "phrase"
	RecoveryEmail  RecoveryMethod = "email"
)

// ParseRecoveryMethod returns the method named by s and whether it is known.
func ParseRecoveryMethod(s string) (RecoveryMethod, bool) {
	switch m := RecoveryMethod(s); m {
	case RecoveryPhrase, RecoveryEmail:
		return m, true
	default:
		return "", false
	}
}

// Recovery is either a PhraseRecovery or an EmailRecovery. Exactly one is
// active for a user.
type Recovery interface {
	Method() RecoveryMethod
	isRecovery()
}

// PhraseRecovery stores the hash of a recovery phrase handed out once.
type PhraseRecovery struct {
	Hash []byte
}

func (PhraseRecovery) Method() RecoveryMethod { return RecoveryPhrase }
func (PhraseRecovery) isRecovery()            {}

// EmailRecovery stores a recovery address and whether it was confirmed.
type EmailRecovery struct {
	Address  string
	Verified bool
}

func (EmailRecovery) Method() RecoveryMethod { return RecoveryEmail }
func (EmailRecovery) isRecovery()            {}

// Settings holds user-editable preferences.
type Settings struct {
	TransactionLogging    bool
	SMSNotificationNumber *string
}

// User is the identity and financial record of an account holder.
//
// Balance is kept in the smallest currency unit and never drops below zero.
// Version guards the non-balance fields against lost updates; balance
// changes go through the store's conditional debit/credit instead.
type User struct {
	ID               string
	Username         string
	PasswordHash     []byte
	RevocationMarker string
	Recovery         Recovery
	Settings         Settings
	Balance          int64
	IsAdmin          bool
	IsGuest          bool
	Version          int64
	CreatedAt        time.Time
}

// Clone returns a deep copy so callers can mutate it without touching
// stored state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	if u.Settings.SMSNotificationNumber != nil {
		n := *u.Settings.SMSNotificationNumber
		c.Settings.SMSNotificationNumber = &n
	}
	if p, ok := u.Recovery.(PhraseRecovery); ok {
		c.Recovery = PhraseRecovery{Hash: append([]byte(nil), p.Hash...)}
	}
	return &c
}

// RecoveryMethod reports the active method, or "" when none is set.
func (u *User) RecoveryMethod() RecoveryMethod {
	if u.Recovery == nil {
		return ""
	}
	return u.Recovery.Method()
}

// RecoveryEmail returns the address on file when email recovery is active.
func (u *User) RecoveryEmail() (string, bool) {
	e, ok := u.Recovery.(EmailRecovery)
	if !ok {
		return "", false
	}
	return e.Address, true
}
