// Package auth stores the directory admin secret in the system keyring.
package auth

import (
	"errors"
	"os"

	"github.com/vodsync/vodsync/constant"
	"github.com/zalando/go-keyring"
)

// EnvAdminSecret overrides the keyring, for headless hosts.
const EnvAdminSecret = "VODSYNC_ADMIN_SECRET"

const user = "directory-admin"

// ErrNoSecret is returned when no admin secret is stored.
var ErrNoSecret = errors.New("no admin secret stored, run `vodsync admin login`")

// SetSecret persists the admin secret.
func SetSecret(secret string) error {
	return keyring.Set(constant.App, user, secret)
}

// Secret returns the admin secret from the environment or the keyring.
func Secret() (string, error) {
	if s := os.Getenv(EnvAdminSecret); s != "" {
		return s, nil
	}

	s, err := keyring.Get(constant.App, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoSecret
	}
	return s, err
}

// DeleteSecret removes the stored admin secret.
func DeleteSecret() error {
	err := keyring.Delete(constant.App, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNoSecret
	}
	return err
}
