// Package remind converts a project's reminder time into a recurring
// scheduled alert, negotiating notification permission on the way.
package remind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/stride/internal/model"
	"github.com/roach88/stride/internal/store"
)

// ErrPermissionDenied means the user refused notification permission.
// Recoverable: the caller is expected to point the user at system
// settings rather than treat this as a fault.
var ErrPermissionDenied = errors.New("notification permission denied")

// Loop is the slice of the live engine the scheduler needs: a way to
// run store work on the owner goroutine and a way to marshal async
// permission replies back onto it.
type Loop interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	Dispatch(fn func(ctx context.Context))
	Store() *store.Store
}

// Scheduler owns no permission state and stores no registrations of
// its own - the notifier keeps registrations, keyed by project id, and
// the project row keeps the persisted time-of-day.
type Scheduler struct {
	notifier Notifier
	loop     Loop
	log      *slog.Logger
}

// New creates a scheduler.
func New(notifier Notifier, loop Loop, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{notifier: notifier, loop: loop, log: log}
}

// SetReminder arranges a daily alert for the project at the given
// time. The call never blocks on the permission prompt: done is
// invoked exactly once, later, with the outcome.
//
// Denied permission fails without scheduling and without mutating the
// project's stored reminder time. A grant that arrives after the
// project was deleted resolves as a harmless no-op.
func (s *Scheduler) SetReminder(projectID string, t model.TimeOfDay, done func(error)) {
	if err := t.Validate(); err != nil {
		done(fmt.Errorf("set reminder: %w", err))
		return
	}

	switch s.notifier.Authorization() {
	case AuthDenied:
		done(ErrPermissionDenied)

	case AuthGranted:
		s.loop.Dispatch(func(ctx context.Context) {
			done(s.schedule(ctx, projectID, t))
		})

	default: // AuthUndetermined: one async round-trip to the OS prompt
		s.notifier.RequestAuthorization(func(granted bool) {
			if !granted {
				done(ErrPermissionDenied)
				return
			}
			s.loop.Dispatch(func(ctx context.Context) {
				done(s.schedule(ctx, projectID, t))
			})
		})
	}
}

// ClearReminder cancels any registration for the project and clears
// its stored reminder time. Safe to call when no registration exists;
// calling it twice leaves the same state as calling it once.
func (s *Scheduler) ClearReminder(ctx context.Context, projectID string) error {
	return s.loop.Do(ctx, func(ctx context.Context) error {
		s.notifier.Cancel(projectID)

		err := s.loop.Store().SetProjectReminder(ctx, projectID, nil)
		if store.IsNotFound(err) {
			// Project already gone; nothing left to clear.
			return nil
		}
		return err
	})
}

// CancelRegistration removes only the notifier-side registration.
// Used when the project row itself is being deleted.
func (s *Scheduler) CancelRegistration(projectID string) {
	s.notifier.Cancel(projectID)
}

// schedule runs on the owner loop with permission already granted:
// persist the time, then (re)register the alert. Registering an
// existing key replaces the prior registration.
func (s *Scheduler) schedule(ctx context.Context, projectID string, t model.TimeOfDay) error {
	p, err := s.loop.Store().GetProject(ctx, projectID)
	if store.IsNotFound(err) {
		// Late grant against a deleted project. Drop any stale
		// registration and succeed quietly.
		s.notifier.Cancel(projectID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.loop.Store().SetProjectReminder(ctx, projectID, &t); err != nil {
		return err
	}

	err = s.notifier.Register(Registration{
		Key:    projectID,
		Hour:   t.Hour,
		Minute: t.Minute,
		Title:  p.Title,
		Body:   p.Detail,
	})
	if err != nil {
		// Keep store and notifier consistent: no alert means no
		// stored reminder time either.
		if clearErr := s.loop.Store().SetProjectReminder(ctx, projectID, nil); clearErr != nil {
			s.log.Error("failed to roll back reminder time", "project", projectID, "err", clearErr)
		}
		return fmt.Errorf("register alert: %w", err)
	}
	return nil
}
