package unlock

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/stride/internal/prefs"
)

// ProductID identifies the one full-version unlock product. The
// identifier set is fixed at build time.
const ProductID = "dev.stride.unlock"

var (
	// ErrProductUnavailable means discovery returned no product.
	// Recoverable by retrying discovery later.
	ErrProductUnavailable = errors.New("unlock product unavailable")
	// ErrInvalidIdentifiers means the provider rejected our product id.
	ErrInvalidIdentifiers = errors.New("invalid product identifiers")
	// ErrNotReady means the requested operation is meaningless in the
	// current request state (e.g. Buy before discovery finished).
	ErrNotReady = errors.New("purchase not available in current state")
)

// Dispatcher marshals work onto the single-writer owner loop. The
// live engine satisfies this.
type Dispatcher interface {
	Dispatch(fn func(ctx context.Context))
}

// Manager mediates the external payment provider and exposes exactly
// two things to the rest of the system: the durable unlocked flag and
// the transient request state. No other component ever sees
// transaction-stream internals.
//
// Construction rule: when the entitlement is already unlocked, the
// manager sits in StateIdle and product discovery never starts.
type Manager struct {
	entitlements *prefs.Prefs
	provider     Provider
	disp         Dispatcher
	log          *slog.Logger

	// mu guards the transient request state, which is read from UI
	// goroutines while the owner loop mutates it.
	mu      sync.Mutex
	state   State
	product *Product
	lastErr error
}

// New wires a manager to the provider and starts product discovery
// unless the entitlement is already unlocked.
func New(entitlements *prefs.Prefs, provider Provider, disp Dispatcher, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		entitlements: entitlements,
		provider:     provider,
		disp:         disp,
		log:          log,
	}

	// Watch the transaction stream from the start: purchases can
	// resolve at any point, including redeliveries from a prior run.
	provider.Observe(m.handleTransactions)

	if entitlements.Unlocked() {
		m.state = StateIdle
		return m
	}

	m.state = StateLoading
	provider.FetchProducts([]string{ProductID}, m.handleProducts)
	return m
}

// State returns the current request state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Product returns the cached product from discovery, or nil.
func (m *Manager) Product() *Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.product == nil {
		return nil
	}
	p := *m.product
	return &p
}

// Err returns the error behind a StateFailed, or nil.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Unlocked reports the durable entitlement flag.
func (m *Manager) Unlocked() bool {
	return m.entitlements.Unlocked()
}

// Buy enqueues a payment request for the discovered product. Only
// meaningful from StateLoaded; the state does not change here - it
// changes when the transaction stream reports an outcome.
func (m *Manager) Buy() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateLoaded || m.product == nil {
		return ErrNotReady
	}
	m.provider.Purchase(m.product.ID)
	return nil
}

// Restore asks the provider to replay prior purchases. Outcomes
// arrive through the transaction stream like any purchase.
func (m *Manager) Restore() {
	m.provider.Restore()
}

// Retry moves Failed back to Loaded when a product from an earlier
// successful discovery is cached. Without one there is nothing to
// retry against and the state stays Failed.
func (m *Manager) Retry() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateFailed || m.product == nil {
		return ErrNotReady
	}
	m.state = StateLoaded
	m.lastErr = nil
	return nil
}

// handleProducts is the discovery callback. It may run on any
// goroutine, so the transition is marshaled onto the owner loop.
func (m *Manager) handleProducts(resp ProductsResponse, err error) {
	m.disp.Dispatch(func(ctx context.Context) {
		m.mu.Lock()
		defer m.mu.Unlock()

		switch {
		case err != nil:
			m.state = StateFailed
			m.lastErr = err
		case len(resp.InvalidIDs) > 0:
			m.log.Warn("payment provider rejected product identifiers", "ids", resp.InvalidIDs)
			m.state = StateFailed
			m.lastErr = ErrInvalidIdentifiers
		case len(resp.Products) == 0:
			m.state = StateFailed
			m.lastErr = ErrProductUnavailable
		default:
			p := resp.Products[0]
			m.product = &p
			m.state = StateLoaded
			m.lastErr = nil
		}
	})
}

// handleTransactions processes one transaction-stream batch. Batches
// are marshaled onto the owner loop whole, so batch order is
// preserved; entries within a batch may arrive in any order, which is
// why a success is terminal and can't be undone by a later failed
// entry in the same batch.
func (m *Manager) handleTransactions(batch []Transaction) {
	m.disp.Dispatch(func(ctx context.Context) {
		for _, tx := range batch {
			m.apply(tx)
		}
	})
}

func (m *Manager) apply(tx Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch tx.State {
	case TxPurchased, TxRestored:
		if err := m.entitlements.Unlock(); err != nil {
			// The in-memory flag is set; only the flush failed. The
			// unfinished write is retried on the next prefs change.
			m.log.Error("failed to persist unlock", "err", err)
		}
		m.state = StatePurchased
		m.lastErr = nil
		m.provider.Finish(tx.ID)

	case TxFailed:
		if m.state != StatePurchased {
			if m.product != nil {
				m.state = StateLoaded
			} else {
				m.state = StateFailed
				m.lastErr = tx.Err
			}
		}
		m.provider.Finish(tx.ID)

	case TxDeferred:
		if m.state != StatePurchased {
			m.state = StateDeferred
		}
		// No Finish: the transaction resolves later through the same
		// stream once the external approval lands.

	default:
		m.log.Warn("ignoring unknown transaction state", "tx", tx.ID, "state", int(tx.State))
	}
}
