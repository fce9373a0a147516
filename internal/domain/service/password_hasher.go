// Package service defines interfaces for stateless domain logic whose
// implementations live in internal/infra.
package service

// PasswordHasher is a one-way, salted, adaptive hash.
type PasswordHasher interface {
	// Hash generates a salted hash from a plaintext secret.
	Hash(plaintext string) (string, error)

	// Check compares plaintext with digest in constant time. Malformed or
	// empty digests never match.
	Check(plaintext, digest string) bool
}
