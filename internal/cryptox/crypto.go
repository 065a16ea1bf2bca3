// Package cryptox holds the credential primitives used by the account
// services: bcrypt secret hashing and recovery phrase generation.
package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/bcrypt"
)

// PhraseEntropyBits yields a 12-word BIP-39 phrase.
const PhraseEntropyBits = 128

// Hasher hashes and compares secrets with bcrypt at a fixed cost.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher, clamping cost into bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// prehash folds arbitrarily long secrets below bcrypt's 72-byte input limit.
func prehash(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// Hash returns the bcrypt digest of secret.
func (h *Hasher) Hash(secret string) ([]byte, error) {
	return bcrypt.GenerateFromPassword(prehash(secret), h.Cost)
}

// Compare reports whether secret matches hash. A malformed hash is reported
// as a mismatch.
func (h *Hasher) Compare(hash []byte, secret string) bool {
	err := bcrypt.CompareHashAndPassword(hash, prehash(secret))
	return err == nil
}

// NewRecoveryPhrase returns a fresh BIP-39 mnemonic split into words.
func NewRecoveryPhrase() ([]string, error) {
	entropy, err := bip39.NewEntropy(PhraseEntropyBits)
	if err != nil {
		return nil, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	return strings.Fields(mnemonic), nil
}

// JoinPhrase is the canonical string form hashed for storage.
func JoinPhrase(words []string) string {
	return strings.Join(words, " ")
}

// ErrInvalidPhrase is returned by CheckPhrase for malformed mnemonics.
var ErrInvalidPhrase = errors.New("invalid recovery phrase")

// CheckPhrase validates the words and checksum of a mnemonic.
func CheckPhrase(words []string) error {
	if !bip39.IsMnemonicValid(JoinPhrase(words)) {
		return ErrInvalidPhrase
	}
	return nil
}
