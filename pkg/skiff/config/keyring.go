// Credential storage backed by the operating system's native keyring
// (Linux: Secret Service/GNOME Keyring, macOS: Keychain, Windows:
// Credential Manager).
//
// Priority for resolving the API key:
//  1. OS keyring (encrypted by the OS, requires user session)
//  2. Provider-specific environment variable (OPENAI_API_KEY, ...)
//  3. SKIFF_API_KEY environment variable
//  4. config.yaml value (least secure, plaintext on disk)

package config

import (
	"errors"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "skiff"
	keyringAPIKey  = "api_key"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring. Returns empty
// string if not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// StoreAPIKey saves the API key under the dedicated keyring entry.
func StoreAPIKey(value string) error {
	return StoreKeyring(keyringAPIKey, value)
}

// DeleteAPIKey removes the stored API key. A missing entry is not an
// error.
func DeleteAPIKey() error {
	err := DeleteKeyring(keyringAPIKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasStoredAPIKey reports whether an API key is present in the keyring.
func HasStoredAPIKey() bool {
	return GetKeyring(keyringAPIKey) != ""
}

// KeyringAvailable checks if the OS keyring is accessible with a
// write+delete cycle on a throwaway key.
func KeyringAvailable() bool {
	testKey := "__skiff_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// ResolveAPIKey fills cfg.API.APIKey from the priority chain. The
// config value already present (possibly from env expansion) is the
// last resort.
func ResolveAPIKey(cfg *Config, logger *slog.Logger) {
	if val := GetKeyring(keyringAPIKey); val != "" {
		cfg.API.APIKey = val
		logger.Debug("API key loaded from OS keyring")
		return
	}

	if val := os.Getenv(GetProviderKeyName(cfg.API.Provider)); val != "" {
		cfg.API.APIKey = val
		logger.Debug("API key loaded from provider environment variable")
		return
	}
	if val := os.Getenv("SKIFF_API_KEY"); val != "" {
		cfg.API.APIKey = val
		logger.Debug("API key loaded from SKIFF_API_KEY")
		return
	}

	if cfg.API.APIKey != "" && !IsEnvReference(cfg.API.APIKey) {
		logger.Warn("API key appears to be hardcoded in config",
			"hint", "set 'api_key: ${SKIFF_API_KEY}' in the config file")
		return
	}
	cfg.API.APIKey = ""
}
