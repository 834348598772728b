// Package notify provides the file-backed notification center the CLI
// runs against. It stands in for the OS notification subsystem: a YAML
// registry of recurring alerts keyed by project id, with the
// permission record kept in prefs.
//
// The permission prompt auto-grants - a terminal app has no system
// dialog to show - but it still round-trips asynchronously and records
// the outcome durably, so the scheduler exercises the same negotiation
// it would against a real notification center.
package notify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stride/internal/prefs"
	"github.com/roach88/stride/internal/remind"
)

type registration struct {
	Hour   int    `yaml:"hour"`
	Minute int    `yaml:"minute"`
	Title  string `yaml:"title"`
	Body   string `yaml:"body"`
}

// FileCenter implements remind.Notifier over a YAML registry file.
// Safe for concurrent use.
type FileCenter struct {
	path string
	pref *prefs.Prefs

	mu sync.Mutex
}

// New creates a center storing registrations at path and permission
// state in the given prefs.
func New(path string, pref *prefs.Prefs) *FileCenter {
	return &FileCenter{path: path, pref: pref}
}

// Authorization reports the recorded permission.
func (c *FileCenter) Authorization() remind.AuthStatus {
	switch c.pref.Permission() {
	case prefs.PermissionGranted:
		return remind.AuthGranted
	case prefs.PermissionDenied:
		return remind.AuthDenied
	default:
		return remind.AuthUndetermined
	}
}

// RequestAuthorization performs the one-time permission round-trip.
// The reply is delivered from a separate goroutine, matching the
// asynchronous contract of a real permission prompt.
func (c *FileCenter) RequestAuthorization(reply func(granted bool)) {
	go func() {
		granted := true
		if err := c.pref.SetPermission(prefs.PermissionGranted); err != nil {
			// Couldn't record the grant; report denial so the caller
			// doesn't schedule alerts we can't keep track of.
			granted = false
		}
		reply(granted)
	}()
}

// Register stores or replaces the registration for r.Key.
func (c *FileCenter) Register(r remind.Registration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	regs, err := c.load()
	if err != nil {
		return err
	}
	regs[r.Key] = registration{Hour: r.Hour, Minute: r.Minute, Title: r.Title, Body: r.Body}
	return c.write(regs)
}

// Cancel removes the registration for key. Unknown keys are a no-op.
func (c *FileCenter) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	regs, err := c.load()
	if err != nil {
		return
	}
	if _, ok := regs[key]; !ok {
		return
	}
	delete(regs, key)
	// Best-effort: a failed write leaves the stale entry behind, and
	// the next successful write clears it.
	_ = c.write(regs)
}

// Registrations returns a snapshot of all active registrations.
func (c *FileCenter) Registrations() (map[string]remind.Registration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	regs, err := c.load()
	if err != nil {
		return nil, err
	}

	out := make(map[string]remind.Registration, len(regs))
	for key, r := range regs {
		out[key] = remind.Registration{
			Key: key, Hour: r.Hour, Minute: r.Minute, Title: r.Title, Body: r.Body,
		}
	}
	return out, nil
}

func (c *FileCenter) load() (map[string]registration, error) {
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]registration), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registrations: %w", err)
	}

	regs := make(map[string]registration)
	if err := yaml.Unmarshal(raw, &regs); err != nil {
		return nil, fmt.Errorf("parse registrations %s: %w", c.path, err)
	}
	return regs, nil
}

func (c *FileCenter) write(regs map[string]registration) error {
	raw, err := yaml.Marshal(regs)
	if err != nil {
		return fmt.Errorf("marshal registrations: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("write registrations: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write registrations: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("write registrations: %w", err)
	}
	return nil
}
