package auth

import (
	"crypto/rand"
	"math/big"
	"strings"

	"arena/config"
	"arena/internal/domain/entity"
	"arena/internal/domain/service"
	"arena/internal/errors"
)

// BackupCodeAlphabet omits 0/O and 1/I so codes survive being read aloud.
const BackupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	defaultBackupCodeCount  = 10
	defaultBackupCodeLength = 10
	defaultBackupCodeCost   = 10
)

type backupCodeManager struct {
	count  int
	length int
	hasher service.PasswordHasher
}

// NewBackupCodeManager hashes codes with its own bcrypt hasher at
// auth.backupCodeCost; codes are already high entropy.
func NewBackupCodeManager(cfg *config.Config) service.BackupCodeManager {
	count, length, cost := defaultBackupCodeCount, defaultBackupCodeLength, defaultBackupCodeCost
	if cfg != nil && cfg.Auth != nil {
		if cfg.Auth.BackupCodeCount > 0 {
			count = cfg.Auth.BackupCodeCount
		}
		if cfg.Auth.BackupCodeLength > 0 {
			length = cfg.Auth.BackupCodeLength
		}
		if cfg.Auth.BackupCodeCost > 0 {
			cost = cfg.Auth.BackupCodeCost
		}
	}

	return newBackupCodeManager(count, length, NewBcryptHasherWithCost(cost))
}

func newBackupCodeManager(count, length int, hasher service.PasswordHasher) *backupCodeManager {
	return &backupCodeManager{count: count, length: length, hasher: hasher}
}

// GenerateBatch returns formatted plaintext codes and their hashes in the same order.
func (m *backupCodeManager) GenerateBatch() ([]string, entity.BackupCodeSet, error) {
	plain := make([]string, 0, m.count)
	hashes := make(entity.BackupCodeSet, 0, m.count)

	for range m.count {
		code, err := randomBackupCode(m.length)
		if err != nil {
			return nil, nil, err
		}

		hash, err := m.hasher.Hash(code)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to hash backup code")
		}

		plain = append(plain, FormatBackupCode(code))
		hashes = append(hashes, hash)
	}

	return plain, hashes, nil
}

// Match returns the first hash the submitted code verifies against.
func (m *backupCodeManager) Match(set entity.BackupCodeSet, code string) (string, bool) {
	canonical := CanonicalizeBackupCode(code)
	if len(canonical) != m.length {
		return "", false
	}

	for _, hash := range set {
		if m.hasher.Check(canonical, hash) {
			return hash, true
		}
	}

	return "", false
}

// Consume removes at most one hash: the first one code matches.
func (m *backupCodeManager) Consume(set entity.BackupCodeSet, code string) (bool, entity.BackupCodeSet) {
	hash, ok := m.Match(set, code)
	if !ok {
		return false, set.Clone()
	}

	remaining, removed := set.Remove(hash)

	return removed, remaining
}

// FormatBackupCode splits a canonical code in two halves for display.
func FormatBackupCode(code string) string {
	if len(code) < 8 {
		return code
	}

	mid := len(code) / 2

	return code[:mid] + "-" + code[mid:]
}

// CanonicalizeBackupCode undoes display formatting and user typing habits.
func CanonicalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")

	return strings.ReplaceAll(code, " ", "")
}

func randomBackupCode(length int) (string, error) {
	alphabetLen := big.NewInt(int64(len(BackupCodeAlphabet)))

	var b strings.Builder
	b.Grow(length)
	for range length {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", errors.Wrap(err, "failed to read random backup code")
		}
		b.WriteByte(BackupCodeAlphabet[idx.Int64()])
	}

	return b.String(), nil
}
