package config

import "fmt"

type TokenEncryptionConfig struct {
	Enabled   bool
	SecretKey RedactedString
}

type TokenStoreConfig struct {
	// Prefix is prepended to the namespace of every persisted key
	Prefix          string
	TokenEncryption TokenEncryptionConfig
}

func (c TokenStoreConfig) Validate() error {
	if c.TokenEncryption.Enabled && len(c.TokenEncryption.SecretKey) != 32 {
		return fmt.Errorf(
			"token encryption key has to be 32 bytes long, the provided one is %d long",
			len(c.TokenEncryption.SecretKey),
		)
	}
	return nil
}
