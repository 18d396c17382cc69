// Package appearance tracks the light/dark display preference.
//
// The preference is a one-word flag file. A Watcher observes it with
// fsnotify so any process toggling the theme reaches every subscriber.
package appearance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mode is a display mode.
type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// ParseMode maps a stored flag to a Mode. Anything other than "dark" is Light.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(Dark)) {
		return Dark
	}
	return Light
}

// Toggled returns the other mode.
func (m Mode) Toggled() Mode {
	if m == Dark {
		return Light
	}
	return Dark
}

// Preference is the flag file at Path.
type Preference struct {
	Path string
}

// Read returns the stored mode. A missing or unreadable file is Light.
func (p Preference) Read() Mode {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return Light
	}
	return ParseMode(string(data))
}

// Write stores m.
func (p Preference) Write(m Mode) error {
	if m != Light && m != Dark {
		return fmt.Errorf("unknown mode %q", m)
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0700); err != nil {
		return err
	}
	// Replaced by rename; readers never see a partial write.
	tmp := p.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(string(m)+"\n"), 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, p.Path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Toggle flips the stored mode and returns the new one.
func (p Preference) Toggle() (Mode, error) {
	next := p.Read().Toggled()
	if err := p.Write(next); err != nil {
		return "", err
	}
	return next, nil
}

// Set stores the mode named by s, which must be "light" or "dark".
func (p Preference) Set(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Light, Dark:
		return m, p.Write(m)
	}
	return "", errors.New(`mode must be "light" or "dark"`)
}
