package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Environment variables consulted for the API key.
const (
	EnvAPIKey         = "GEMINI_API_KEY"
	EnvPassphraseFile = "GEMINI_GPG_PASSPHRASE_FILE"
)

// ErrNoKey is returned when no source yields an API key.
var ErrNoKey = errors.New("no Gemini API key configured")

// keySource is one place an API key can come from.
type keySource struct {
	name   string
	lookup func() (string, error)
}

var keySources = []keySource{
	{name: "env", lookup: func() (string, error) { return os.Getenv(EnvAPIKey), nil }},
	{name: "gpg", lookup: func() (string, error) {
		path, err := CredentialPath()
		if err != nil {
			return "", err
		}
		return decryptKeyFile(path)
	}},
}

// GetAPIKey returns the first key found in GEMINI_API_KEY or the
// GPG-encrypted credentials file. The error wraps ErrNoKey and lists why each
// source came up empty.
func GetAPIKey() (string, error) {
	var reasons []error
	for _, src := range keySources {
		key, err := src.lookup()
		if err != nil {
			reasons = append(reasons, fmt.Errorf("%s: %w", src.name, err))
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			log.Debug().Str("source", src.name).Msg("Resolved Gemini API key")
			return key, nil
		}
	}
	if len(reasons) == 0 {
		return "", ErrNoKey
	}
	return "", fmt.Errorf("%w: %w", ErrNoKey, errors.Join(reasons...))
}

// CredentialPath is where the encrypted key lives: ~/.satellite-enhance/credentials.gpg.
func CredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".satellite-enhance", "credentials.gpg"), nil
}

// decryptKeyFile runs gpg on path. A missing file is not an error; it just
// yields no key.
func decryptKeyFile(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	args := append([]string{"--decrypt", "--quiet", "--batch"}, passphraseArgs()...)
	out, err := exec.Command("gpg", append(args, path)...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("gpg: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("gpg: %w", err)
	}
	// out is the key itself and must never be logged.
	return string(out), nil
}

// passphraseArgs enables loopback pinentry when GEMINI_GPG_PASSPHRASE_FILE
// names an owner-only file. Without it gpg falls back to its agent.
func passphraseArgs() []string {
	path := os.Getenv(EnvPassphraseFile)
	if path == "" {
		return nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Passphrase file unreadable; ignoring")
		return nil
	}
	if perm := fi.Mode().Perm(); perm&0o077 != 0 {
		log.Warn().Str("file", path).Str("mode", fmt.Sprintf("%04o", perm)).Msg("Passphrase file must be 0600; ignoring")
		return nil
	}
	return []string{"--pinentry-mode", "loopback", "--passphrase-file", path}
}
