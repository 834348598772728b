package live

import (
	"context"
	"slices"
	"sync"
)

// Subscription is a live view of one query's ordered result set.
//
// Updates arrive on Updates() in mutation order. A delivery is skipped
// only when the new ordered result set equals the last delivered one.
// Cancel stops further delivery immediately and is idempotent; the
// Updates channel is closed once any queued deliveries have drained.
type Subscription[T any] struct {
	eval  func(ctx context.Context) ([]T, error)
	equal func(a, b T) bool

	// last is only touched on the engine loop goroutine.
	last []T

	engine *Engine
	id     int64
	log    logFunc

	mu       sync.Mutex
	pending  [][]T
	signal   chan struct{}
	stopped  bool
	stopOnce sync.Once
	stop     chan struct{}
	updates  chan []T
}

type logFunc func(msg string, args ...any)

// subscribe evaluates the initial snapshot on the owner loop (so it
// always sees fully committed state) and registers the subscription
// before any later mutation can run, guaranteeing no update is missed.
func subscribe[T any](
	ctx context.Context,
	e *Engine,
	eval func(ctx context.Context) ([]T, error),
	equal func(a, b T) bool,
) ([]T, *Subscription[T], error) {
	sub := &Subscription[T]{
		eval:    eval,
		equal:   equal,
		engine:  e,
		log:     e.log.Warn,
		signal:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		updates: make(chan []T),
	}

	var initial []T
	err := e.View(ctx, func(ctx context.Context) error {
		res, evalErr := sub.eval(ctx)
		if evalErr != nil {
			return evalErr
		}
		initial = res
		sub.last = res
		sub.id = e.register(sub)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	go sub.pump()
	return initial, sub, nil
}

// Updates returns the delivery channel. It closes after Cancel.
func (s *Subscription[T]) Updates() <-chan []T {
	return s.updates
}

// Cancel stops further delivery. Safe to call multiple times and from
// any goroutine.
func (s *Subscription[T]) Cancel() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		close(s.stop)
		s.engine.deregister(s.id)
	})
}

// refresh re-runs the query and queues a delivery when the ordered
// result set changed. Called only on the engine loop goroutine.
func (s *Subscription[T]) refresh(ctx context.Context) {
	res, err := s.eval(ctx)
	if err != nil {
		// Read errors degrade to keeping the previous result; they
		// never propagate as fatal.
		s.log("subscription refresh failed", "err", err)
		return
	}

	if slices.EqualFunc(s.last, res, s.equal) {
		return
	}
	s.last = res
	s.push(res)
}

// push appends to the unbounded pending queue so the engine loop never
// blocks on a slow subscriber, preserving delivery order.
func (s *Subscription[T]) push(res []T) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, res)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// pump forwards queued deliveries to the subscriber in order.
func (s *Subscription[T]) pump() {
	defer close(s.updates)

	for {
		s.mu.Lock()
		var next []T
		have := len(s.pending) > 0
		if have {
			next = s.pending[0]
			s.pending[0] = nil
			s.pending = s.pending[1:]
		}
		s.mu.Unlock()

		if have {
			select {
			case s.updates <- next:
				continue
			case <-s.stop:
				return
			}
		}

		select {
		case <-s.stop:
			return
		case <-s.signal:
		}
	}
}
