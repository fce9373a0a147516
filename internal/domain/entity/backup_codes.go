package entity

import (
	"encoding/json"
	"slices"
)

// BackupCodeSet holds the hashes of unused recovery codes, in issue order.
type BackupCodeSet []string

// DecodeBackupCodeSet parses the stored JSON form. Malformed data yields an
// empty set: a corrupt code store must never grant access.
func DecodeBackupCodeSet(raw string) BackupCodeSet {
	if raw == "" {
		return nil
	}

	var set BackupCodeSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil
	}

	return set
}

// Encode returns the stored JSON form. An empty set encodes to "".
func (s BackupCodeSet) Encode() string {
	if len(s) == 0 {
		return ""
	}

	raw, err := json.Marshal([]string(s))
	if err != nil {
		return ""
	}

	return string(raw)
}

// Contains reports whether hash is still unused.
func (s BackupCodeSet) Contains(hash string) bool {
	return slices.Contains(s, hash)
}

// Remove returns a copy without the first occurrence of hash, and whether it was present.
func (s BackupCodeSet) Remove(hash string) (BackupCodeSet, bool) {
	idx := slices.Index(s, hash)
	if idx < 0 {
		return s.Clone(), false
	}

	out := make(BackupCodeSet, 0, len(s)-1)
	out = append(out, s[:idx]...)
	out = append(out, s[idx+1:]...)

	return out, true
}

// Clone returns an independent copy.
func (s BackupCodeSet) Clone() BackupCodeSet {
	if s == nil {
		return nil
	}

	return slices.Clone(s)
}
