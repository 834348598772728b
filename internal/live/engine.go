package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/stride/internal/model"
	"github.com/roach88/stride/internal/store"
)

// ErrStopped is returned when work is submitted after the engine's
// queue has been closed.
var ErrStopped = errors.New("live engine stopped")

// Engine is the single-writer owner of the store.
//
// All mutations and all subscription re-evaluation run on the one
// goroutine executing Run. External callers submit work with Do/View
// (synchronous) or Dispatch (asynchronous completion marshaling).
//
// Thread-safety model:
//   - Do/View/Dispatch/Subscribe*: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Engine struct {
	store *store.Store
	queue *taskQueue
	log   *slog.Logger

	mu      sync.Mutex
	subs    map[int64]refresher
	nextSub int64
}

// refresher is the untyped view of a subscription the loop re-runs
// after each mutation.
type refresher interface {
	refresh(ctx context.Context)
}

// New creates an engine owning the given store.
func New(s *store.Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store: s,
		queue: newTaskQueue(),
		log:   log,
		subs:  make(map[int64]refresher),
	}
}

// Store returns the underlying store. Access it only from closures
// running on the loop (Do, View, Dispatch) - direct use from other
// goroutines breaks the single-writer discipline.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Run starts the single-writer loop.
// Blocks until the context is cancelled or Stop is called.
//
// On task failure the error is returned to the submitter (or logged
// for fire-and-forget tasks) and the loop continues.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("live engine starting")

	for {
		t, ok := e.queue.TryDequeue()
		if ok {
			e.process(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			e.log.Info("live engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed,
			// which fires this case immediately.
			if e.queue.Len() == 0 {
				e.log.Info("live engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine.
// Closes the task queue, which causes Run to return once drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) process(ctx context.Context, t task) {
	err := t.fn(ctx)
	if t.reply != nil {
		t.reply <- err
	} else if err != nil {
		e.log.Error("dispatched task failed", "err", err)
	}

	// Re-evaluate subscriptions against the now-committed state.
	// Mutations and re-evaluations never interleave: both happen here,
	// on the one loop goroutine.
	if t.mutation {
		e.refreshAll(ctx)
	}
}

// Do runs a mutation on the owner loop and waits for its result.
// Subscriptions are re-evaluated after the mutation commits.
func (e *Engine) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return e.submit(ctx, fn, true)
}

// View runs a read on the owner loop and waits for its result.
// No subscription re-evaluation happens afterward.
func (e *Engine) View(ctx context.Context, fn func(ctx context.Context) error) error {
	return e.submit(ctx, fn, false)
}

// Dispatch submits an asynchronous completion for processing on the
// owner loop without waiting. This is how payment and permission
// callbacks marshal back before touching core state. Treated as a
// mutation; failures are logged.
func (e *Engine) Dispatch(fn func(ctx context.Context)) {
	ok := e.queue.Enqueue(task{
		fn: func(ctx context.Context) error {
			fn(ctx)
			return nil
		},
		mutation: true,
	})
	if !ok {
		e.log.Warn("dispatch after engine stop dropped")
	}
}

func (e *Engine) submit(ctx context.Context, fn func(ctx context.Context) error, mutation bool) error {
	reply := make(chan error, 1)
	ok := e.queue.Enqueue(task{fn: fn, mutation: mutation, reply: reply})
	if !ok {
		return ErrStopped
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) refreshAll(ctx context.Context) {
	e.mu.Lock()
	subs := make([]refresher, 0, len(e.subs))
	for _, s := range e.subs {
		subs = append(subs, s)
	}
	e.mu.Unlock()

	for _, s := range subs {
		s.refresh(ctx)
	}
}

func (e *Engine) register(r refresher) (id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSub++
	id = e.nextSub
	e.subs[id] = r
	return id
}

func (e *Engine) deregister(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subs, id)
}

// SubscribeProjects returns the current result of the query plus a
// subscription that redelivers the full ordered result set whenever a
// mutation changes it.
func (e *Engine) SubscribeProjects(ctx context.Context, q store.ProjectQuery) ([]model.Project, *Subscription[model.Project], error) {
	return subscribe(ctx, e,
		func(ctx context.Context) ([]model.Project, error) {
			return e.store.ListProjects(ctx, q)
		},
		model.Project.Equal,
	)
}

// SubscribeItems is the item counterpart of SubscribeProjects.
func (e *Engine) SubscribeItems(ctx context.Context, q store.ItemQuery) ([]model.Item, *Subscription[model.Item], error) {
	return subscribe(ctx, e,
		func(ctx context.Context) ([]model.Item, error) {
			return e.store.ListItems(ctx, q)
		},
		model.Item.Equal,
	)
}
