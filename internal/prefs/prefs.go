// Package prefs is the durable key-value storage that lives outside
// the main store: the full-version entitlement flag and the local
// notification permission record.
//
// The file is YAML, rewritten atomically (temp file + rename) on every
// change. There is deliberately no transactional coupling with the
// SQLite store - the entitlement flag is monotonic (false to true,
// once), so the two stores can never disagree in a harmful way.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Permission values recorded for the local notifier.
const (
	PermissionUndetermined = "undetermined"
	PermissionGranted      = "granted"
	PermissionDenied       = "denied"
)

type fileData struct {
	FullVersionUnlocked    bool   `yaml:"full_version_unlocked"`
	NotificationPermission string `yaml:"notification_permission,omitempty"`
}

// Prefs is the process-wide handle to the preference file.
// Safe for concurrent use.
type Prefs struct {
	path string

	mu   sync.Mutex
	data fileData
}

// Load reads the preference file at path, or starts from zero values
// when the file does not exist yet.
func Load(path string) (*Prefs, error) {
	p := &Prefs{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}

	if err := yaml.Unmarshal(raw, &p.data); err != nil {
		return nil, fmt.Errorf("parse prefs %s: %w", path, err)
	}
	return p, nil
}

// Unlocked reports whether the full version has been purchased.
func (p *Prefs) Unlocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.FullVersionUnlocked
}

// Unlock durably records the full-version purchase. The transition is
// one-way: there is intentionally no way to set the flag back to
// false. Idempotent.
func (p *Prefs) Unlock() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data.FullVersionUnlocked {
		return nil
	}
	p.data.FullVersionUnlocked = true
	return p.flushLocked()
}

// Permission returns the recorded notification permission.
func (p *Prefs) Permission() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data.NotificationPermission == "" {
		return PermissionUndetermined
	}
	return p.data.NotificationPermission
}

// SetPermission durably records the notification permission outcome.
func (p *Prefs) SetPermission(value string) error {
	switch value {
	case PermissionUndetermined, PermissionGranted, PermissionDenied:
	default:
		return fmt.Errorf("unknown permission value %q", value)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.data.NotificationPermission = value
	return p.flushLocked()
}

// flushLocked writes the file atomically. Callers hold p.mu.
func (p *Prefs) flushLocked() error {
	raw, err := yaml.Marshal(p.data)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}
