package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// TokenFile keeps the bearer token in a single owner-only file.
type TokenFile struct {
	Path string
}

// NewTokenFile returns a TokenFile at baseDir/token.
func NewTokenFile(baseDir string) TokenFile {
	return TokenFile{Path: filepath.Join(baseDir, "token")}
}

// Load returns the stored token, or "" when none exists.
func (f TokenFile) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes token with mode 0600, creating the directory if needed.
func (f TokenFile) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, []byte(token+"\n"), 0600)
}

// Clear removes the token file. A missing file is not an error.
func (f TokenFile) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// StaticToken is a read-only TokenStore for tokens supplied through the
// environment. Save and Clear are no-ops.
type StaticToken string

func (s StaticToken) Load() (string, error) { return string(s), nil }
func (StaticToken) Save(string) error       { return nil }
func (StaticToken) Clear() error            { return nil }
