package remind

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stride/internal/live"
	"github.com/roach88/stride/internal/model"
	"github.com/roach88/stride/internal/store"
)

// fakeNotifier is a notification center the test controls completely:
// the permission status is set directly and authorization replies are
// held until the test releases them.
type fakeNotifier struct {
	mu          sync.Mutex
	auth        AuthStatus
	regs        map[string]Registration
	registerErr error
	authReply   func(granted bool)
	cancels     []string
}

func newFakeNotifier(auth AuthStatus) *fakeNotifier {
	return &fakeNotifier{auth: auth, regs: make(map[string]Registration)}
}

func (f *fakeNotifier) Authorization() AuthStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth
}

func (f *fakeNotifier) RequestAuthorization(reply func(granted bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authReply = reply
}

func (f *fakeNotifier) Register(r Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return f.registerErr
	}
	f.regs[r.Key] = r
	return nil
}

func (f *fakeNotifier) Cancel(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, key)
	delete(f.regs, key)
}

func (f *fakeNotifier) grant(granted bool) {
	f.mu.Lock()
	reply := f.authReply
	if granted {
		f.auth = AuthGranted
	} else {
		f.auth = AuthDenied
	}
	f.mu.Unlock()
	reply(granted)
}

func (f *fakeNotifier) registration(key string) (Registration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.regs[key]
	return r, ok
}

func newTestLoop(t *testing.T, ids ...string) *live.Engine {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithIDGenerator(store.NewFixedGenerator(ids...)))
	require.NoError(t, err)

	e := live.New(s, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run(context.Background())
	}()
	t.Cleanup(func() {
		e.Stop()
		<-done
		s.Close()
	})
	return e
}

func createProject(t *testing.T, loop *live.Engine, title string) {
	t.Helper()
	require.NoError(t, loop.Do(context.Background(), func(ctx context.Context) error {
		_, err := loop.Store().CreateProject(ctx, store.ProjectDraft{Title: title, Detail: "detail"})
		return err
	}))
}

func storedReminder(t *testing.T, loop *live.Engine, id string) *model.TimeOfDay {
	t.Helper()
	var rem *model.TimeOfDay
	require.NoError(t, loop.View(context.Background(), func(ctx context.Context) error {
		p, err := loop.Store().GetProject(ctx, id)
		if err != nil {
			return err
		}
		rem = p.Reminder
		return nil
	}))
	return rem
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reminder outcome")
		return nil
	}
}

func TestSetReminder_InvalidTime(t *testing.T) {
	loop := newTestLoop(t)
	sched := New(newFakeNotifier(AuthGranted), loop, nil)

	done := make(chan error, 1)
	sched.SetReminder("p1", model.TimeOfDay{Hour: 25}, func(err error) { done <- err })
	assert.Error(t, waitDone(t, done))
}

func TestSetReminder_PermissionDenied(t *testing.T) {
	loop := newTestLoop(t, "p1")
	createProject(t, loop, "Garden")

	notifier := newFakeNotifier(AuthDenied)
	sched := New(notifier, loop, nil)

	done := make(chan error, 1)
	sched.SetReminder("p1", model.TimeOfDay{Hour: 8, Minute: 30}, func(err error) { done <- err })

	assert.ErrorIs(t, waitDone(t, done), ErrPermissionDenied)
	_, registered := notifier.registration("p1")
	assert.False(t, registered)
	assert.Nil(t, storedReminder(t, loop, "p1"), "denied permission must not mutate the stored time")
}

func TestSetReminder_GrantedSchedules(t *testing.T) {
	loop := newTestLoop(t, "p1")
	createProject(t, loop, "Garden")

	notifier := newFakeNotifier(AuthGranted)
	sched := New(notifier, loop, nil)

	done := make(chan error, 1)
	tod := model.TimeOfDay{Hour: 8, Minute: 30}
	sched.SetReminder("p1", tod, func(err error) { done <- err })
	require.NoError(t, waitDone(t, done))

	reg, ok := notifier.registration("p1")
	require.True(t, ok)
	assert.Equal(t, 8, reg.Hour)
	assert.Equal(t, 30, reg.Minute)
	assert.Equal(t, "Garden", reg.Title)
	assert.Equal(t, "detail", reg.Body)

	stored := storedReminder(t, loop, "p1")
	require.NotNil(t, stored)
	assert.Equal(t, tod, *stored)
}

func TestSetReminder_ReplacesExisting(t *testing.T) {
	loop := newTestLoop(t, "p1")
	createProject(t, loop, "Garden")

	notifier := newFakeNotifier(AuthGranted)
	sched := New(notifier, loop, nil)

	for _, tod := range []model.TimeOfDay{{Hour: 8, Minute: 30}, {Hour: 17, Minute: 0}} {
		done := make(chan error, 1)
		sched.SetReminder("p1", tod, func(err error) { done <- err })
		require.NoError(t, waitDone(t, done))
	}

	reg, ok := notifier.registration("p1")
	require.True(t, ok)
	assert.Equal(t, 17, reg.Hour)
	assert.Equal(t, 0, reg.Minute)

	stored := storedReminder(t, loop, "p1")
	require.NotNil(t, stored)
	assert.Equal(t, model.TimeOfDay{Hour: 17, Minute: 0}, *stored)
}

func TestSetReminder_UndeterminedThenGranted(t *testing.T) {
	loop := newTestLoop(t, "p1")
	createProject(t, loop, "Garden")

	notifier := newFakeNotifier(AuthUndetermined)
	sched := New(notifier, loop, nil)

	done := make(chan error, 1)
	sched.SetReminder("p1", model.TimeOfDay{Hour: 8, Minute: 30}, func(err error) { done <- err })

	// The prompt is in flight; nothing is scheduled yet.
	_, registered := notifier.registration("p1")
	assert.False(t, registered)

	notifier.grant(true)
	require.NoError(t, waitDone(t, done))

	_, registered = notifier.registration("p1")
	assert.True(t, registered)
}

func TestSetReminder_UndeterminedThenDenied(t *testing.T) {
	loop := newTestLoop(t, "p1")
	createProject(t, loop, "Garden")

	notifier := newFakeNotifier(AuthUndetermined)
	sched := New(notifier, loop, nil)

	done := make(chan error, 1)
	sched.SetReminder("p1", model.TimeOfDay{Hour: 8, Minute: 30}, func(err error) { done <- err })

	notifier.grant(false)
	assert.ErrorIs(t, waitDone(t, done), ErrPermissionDenied)
	assert.Nil(t, storedReminder(t, loop, "p1"))
}

// A permission grant that lands after the project was deleted must
// resolve quietly: no error, no alert, no resurrected row.
func TestSetReminder_LateGrantAfterDelete(t *testing.T) {
	loop := newTestLoop(t, "p1")
	createProject(t, loop, "Garden")

	notifier := newFakeNotifier(AuthUndetermined)
	sched := New(notifier, loop, nil)

	done := make(chan error, 1)
	sched.SetReminder("p1", model.TimeOfDay{Hour: 8, Minute: 30}, func(err error) { done <- err })

	require.NoError(t, loop.Do(context.Background(), func(ctx context.Context) error {
		_, err := loop.Store().DeleteProject(ctx, "p1")
		return err
	}))

	notifier.grant(true)
	require.NoError(t, waitDone(t, done))

	_, registered := notifier.registration("p1")
	assert.False(t, registered)
	assert.Contains(t, notifier.cancels, "p1", "any stale registration is dropped")
}

func TestSetReminder_RegisterFailureRollsBack(t *testing.T) {
	loop := newTestLoop(t, "p1")
	createProject(t, loop, "Garden")

	notifier := newFakeNotifier(AuthGranted)
	notifier.registerErr = errors.New("center unavailable")
	sched := New(notifier, loop, nil)

	done := make(chan error, 1)
	sched.SetReminder("p1", model.TimeOfDay{Hour: 8, Minute: 30}, func(err error) { done <- err })

	assert.Error(t, waitDone(t, done))
	assert.Nil(t, storedReminder(t, loop, "p1"), "no alert means no stored time either")
}

// Closing a project and then clearing its reminder leaves the project
// closed and otherwise untouched, with no registration behind.
func TestToggleThenClear(t *testing.T) {
	loop := newTestLoop(t, "p1")
	createProject(t, loop, "Garden")

	notifier := newFakeNotifier(AuthGranted)
	sched := New(notifier, loop, nil)

	done := make(chan error, 1)
	sched.SetReminder("p1", model.TimeOfDay{Hour: 8, Minute: 30}, func(err error) { done <- err })
	require.NoError(t, waitDone(t, done))

	ctx := context.Background()
	closed := true
	require.NoError(t, loop.Do(ctx, func(ctx context.Context) error {
		return loop.Store().UpdateProject(ctx, "p1", store.ProjectChanges{Closed: &closed})
	}))

	require.NoError(t, sched.ClearReminder(ctx, "p1"))

	var p model.Project
	require.NoError(t, loop.View(ctx, func(ctx context.Context) error {
		var err error
		p, err = loop.Store().GetProject(ctx, "p1")
		return err
	}))
	assert.True(t, p.Closed)
	assert.Nil(t, p.Reminder)
	assert.Equal(t, "Garden", p.Title)

	_, registered := notifier.registration("p1")
	assert.False(t, registered)
}

func TestClearReminder_Idempotent(t *testing.T) {
	loop := newTestLoop(t, "p1")
	createProject(t, loop, "Garden")

	notifier := newFakeNotifier(AuthGranted)
	sched := New(notifier, loop, nil)

	done := make(chan error, 1)
	sched.SetReminder("p1", model.TimeOfDay{Hour: 8, Minute: 30}, func(err error) { done <- err })
	require.NoError(t, waitDone(t, done))

	ctx := context.Background()
	require.NoError(t, sched.ClearReminder(ctx, "p1"))
	assert.Nil(t, storedReminder(t, loop, "p1"))
	_, registered := notifier.registration("p1")
	assert.False(t, registered)

	// Clearing again, and clearing a project that never had a
	// reminder, both succeed.
	require.NoError(t, sched.ClearReminder(ctx, "p1"))
	require.NoError(t, sched.ClearReminder(ctx, "never-existed"))
}
