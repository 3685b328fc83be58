package testutil

import (
	"sqrt-go/internal/encryption"
	"sqrt-go/internal/sqrt"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() sqrt.Encryptor {
	return encryption.NewTestEncryptor()
}
