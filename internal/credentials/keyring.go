// Package credentials stores the Pocket credential pair in the system
// keyring, as an alternative to environment variables.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/kazuph/mcp-pocket/internal/pocket"
)

const (
	serviceName = "mcp-pocket"

	ConsumerKeyName = "POCKET_CONSUMER_KEY"
	AccessTokenName = "POCKET_ACCESS_TOKEN"
)

// ErrNotFound indicates that a requested secret was not found in the keyring.
var ErrNotFound = errors.New("secret not found")

// GetSecret retrieves the named secret from the system keyring.
func GetSecret(name string) (string, error) {
	secret, err := keyring.Get(serviceName, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read secret %q: %w", name, err)
	}
	return secret, nil
}

// SetSecret stores the named secret after trimming it. Empty values are rejected.
func SetSecret(name, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("secret %q cannot be empty", name)
	}
	if err := keyring.Set(serviceName, name, trimmed); err != nil {
		return fmt.Errorf("store secret %q: %w", name, err)
	}
	return nil
}

// DeleteSecret removes the named secret, returning ErrNotFound when it is absent.
func DeleteSecret(name string) error {
	if err := keyring.Delete(serviceName, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete secret %q: %w", name, err)
	}
	return nil
}

// Load reads the stored credential pair. Missing halves are left empty;
// only keyring failures other than "not found" are returned.
func Load() (pocket.Credentials, error) {
	var creds pocket.Credentials
	var err error

	creds.ConsumerKey, err = GetSecret(ConsumerKeyName)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return pocket.Credentials{}, err
	}
	creds.AccessToken, err = GetSecret(AccessTokenName)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return pocket.Credentials{}, err
	}
	return creds, nil
}

// Save stores both halves of the pair.
func Save(creds pocket.Credentials) error {
	if err := SetSecret(ConsumerKeyName, creds.ConsumerKey); err != nil {
		return err
	}
	return SetSecret(AccessTokenName, creds.AccessToken)
}

// Clear removes the stored pair. Secrets that are already absent are ignored.
func Clear() error {
	for _, name := range []string{ConsumerKeyName, AccessTokenName} {
		if err := DeleteSecret(name); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}
