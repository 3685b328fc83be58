package encryption

import (
	"fmt"

	"sqrt-go/internal/config"
	"sqrt-go/internal/sqrt"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. The "none" type yields a nil Encryptor and archives stay in clear.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (sqrt.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("age encryption requires public_key_path and private_key_path")
		}
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
