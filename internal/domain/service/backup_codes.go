package service

import "arena/internal/domain/entity"

// BackupCodeManager issues and consumes single-use recovery codes.
type BackupCodeManager interface {
	// GenerateBatch returns the plaintext codes, shown once, and their hashes.
	GenerateBatch() ([]string, entity.BackupCodeSet, error)

	// Match returns the first hash in set that code verifies against.
	Match(set entity.BackupCodeSet, code string) (string, bool)

	// Consume removes the first hash matching code. When nothing matches it
	// returns false and an unchanged copy of set.
	Consume(set entity.BackupCodeSet, code string) (bool, entity.BackupCodeSet)
}
