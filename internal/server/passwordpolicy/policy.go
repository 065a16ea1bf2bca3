// Package passwordpolicy decides whether a password is strong enough to be
// accepted for an account.
package passwordpolicy

import (
	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// Policy evaluates candidate passwords. userInputs are account-specific
// strings (such as the username) a strong password should not lean on.
type Policy interface {
	Acceptable(password string, userInputs ...string) bool
}

// ScorePolicy accepts passwords whose zxcvbn score reaches MinScore (0..4).
type ScorePolicy struct {
	MinScore int
}

func NewScorePolicy(minScore int) ScorePolicy {
	return ScorePolicy{MinScore: minScore}
}

func (p ScorePolicy) Acceptable(password string, userInputs ...string) bool {
	if password == "" {
		return false
	}
	return zxcvbn.PasswordStrength(password, userInputs).Score >= p.MinScore
}

// Func adapts a plain function to Policy.
type Func func(password string, userInputs ...string) bool

func (f Func) Acceptable(password string, userInputs ...string) bool {
	return f(password, userInputs...)
}

// MinLength accepts any password of at least n bytes. It is meant for tests
// and development setups.
func MinLength(n int) Policy {
	return Func(func(password string, _ ...string) bool { return len(password) >= n })
}
