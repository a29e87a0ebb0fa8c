package config

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordConfig holds the admin credential used to obtain API tokens.
type PasswordConfig struct {
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	BcryptCost        int    `env:"BCRYPT_COST"`
	Pepper            string `env:"PASSWORD_PEPPER"` // optional global secret
}

// Validate checks the bcrypt cost range.
func (c *PasswordConfig) Validate() error {
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.BcryptCost)
	}
	return nil
}

// HashPassword hashes a password using bcrypt (with optional pepper).
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw+c.Pepper), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyAdminPassword reports whether pw matches the configured admin hash.
// It is always false when no hash is configured.
func (c *PasswordConfig) VerifyAdminPassword(pw string) bool {
	if c.AdminPasswordHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(c.AdminPasswordHash), []byte(pw+c.Pepper))
	return err == nil
}
