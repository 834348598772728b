package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/stride/internal/awards"
	"github.com/roach88/stride/internal/live"
	"github.com/roach88/stride/internal/notify"
	"github.com/roach88/stride/internal/prefs"
	"github.com/roach88/stride/internal/remind"
	"github.com/roach88/stride/internal/store"
	"github.com/roach88/stride/internal/tracker"
	"github.com/roach88/stride/internal/unlock"
)

// App holds the wired subsystems for one CLI invocation. Commands open
// it, do their work through Tracker (or the subsystem managers), and
// Close it before returning.
type App struct {
	Prefs     *prefs.Prefs
	Store     *store.Store
	Loop      *live.Engine
	Tracker   *tracker.Tracker
	Unlock    *unlock.Manager
	Reminders *remind.Scheduler
	Center    *notify.FileCenter
	Log       *slog.Logger

	done chan error
}

// DataDir resolves the data directory: the --data flag if given,
// otherwise ~/.stride.
func DataDir(opts *RootOptions) (string, error) {
	if opts.DataDir != "" {
		return opts.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	return filepath.Join(home, ".stride"), nil
}

// OpenApp opens the data directory and wires the full stack: prefs,
// store, live engine (its loop started), notification center, reminder
// scheduler, unlock manager against the sandbox provider, and the
// tracker on top. The engine loop runs until Close.
func OpenApp(opts *RootOptions) (*App, error) {
	dir, err := DataDir(opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	pref, err := prefs.Load(filepath.Join(dir, "prefs.yaml"))
	if err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(dir, "stride.db"))
	if err != nil {
		return nil, err
	}

	defs, err := awards.Load()
	if err != nil {
		st.Close()
		return nil, err
	}

	loop := live.New(st, log)
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(context.Background())
	}()

	center := notify.New(filepath.Join(dir, "reminders.yaml"), pref)
	sched := remind.New(center, loop, log)
	mgr := unlock.New(pref, unlock.NewSandboxProvider(), loop, log)
	trk := tracker.New(loop, pref, defs, nil, sched, log)

	return &App{
		Prefs:     pref,
		Store:     st,
		Loop:      loop,
		Tracker:   trk,
		Unlock:    mgr,
		Reminders: sched,
		Center:    center,
		Log:       log,
		done:      done,
	}, nil
}

// Close drains the engine loop and closes the store.
func (a *App) Close() error {
	a.Loop.Stop()
	<-a.done
	return a.Store.Close()
}

// withApp opens the app, runs fn, and always closes the app. The fn
// error wins over a close error.
func withApp(opts *RootOptions, fn func(app *App) error) error {
	app, err := OpenApp(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "open data dir", err)
	}
	runErr := fn(app)
	closeErr := app.Close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}
