package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "sifnotify"

// sessionUserKey stores the signed-in user identifier. The auth
// provider supplies it; the engine treats it as an opaque string.
const sessionUserKey = "session-user"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/sifnotify/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("sifnotify-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// SessionUser returns the stored user identifier, or empty if none.
func SessionUser() string {
	user, err := Get(sessionUserKey)
	if err != nil {
		return ""
	}
	return user
}

// SetSessionUser stores the user identifier for the current session.
func SetSessionUser(userID string) error {
	return Set(sessionUserKey, userID)
}

// ClearSessionUser removes the stored user identifier.
func ClearSessionUser() error {
	return Delete(sessionUserKey)
}
