package auth

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestGetAPIKeyFromEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "  test-api-key-12345\n")

	key, err := GetAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-api-key-12345" {
		t.Errorf("key = %q, want trimmed env value", key)
	}
}

func TestGetAPIKeyNoSource(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv("HOME", t.TempDir())

	_, err := GetAPIKey()
	if !errors.Is(err, ErrNoKey) {
		t.Errorf("error = %v, want ErrNoKey", err)
	}
}

func TestCredentialPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := CredentialPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(home, ".satellite-enhance", "credentials.gpg"); path != want {
		t.Errorf("CredentialPath() = %q, want %q", path, want)
	}
}

func TestDecryptKeyFileMissing(t *testing.T) {
	key, err := decryptKeyFile(filepath.Join(t.TempDir(), "credentials.gpg"))
	if err != nil || key != "" {
		t.Errorf("decryptKeyFile(missing) = (%q, %v), want empty and nil", key, err)
	}
}

func TestPassphraseArgs(t *testing.T) {
	dir := t.TempDir()
	private := filepath.Join(dir, "private")
	os.WriteFile(private, []byte("secret"), 0o600)
	shared := filepath.Join(dir, "shared")
	os.WriteFile(shared, []byte("secret"), 0o644)
	os.Chmod(shared, 0o644)

	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"unset", "", false},
		{"owner only", private, true},
		{"group readable", shared, false},
		{"missing", filepath.Join(dir, "nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvPassphraseFile, tt.env)
			args := passphraseArgs()
			if got := slices.Contains(args, "--passphrase-file"); got != tt.want {
				t.Errorf("passphraseArgs() = %v, want passphrase file %v", args, tt.want)
			}
		})
	}
}
