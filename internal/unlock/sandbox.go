package unlock

import (
	"fmt"
	"sync"
)

// SandboxProvider is a local stand-in for the platform payment
// service, used by the CLI and for manual testing. Purchases always
// succeed and restore always replays one owned purchase.
//
// Callbacks are delivered from fresh goroutines to exercise the same
// marshaling path a real provider would.
type SandboxProvider struct {
	mu       sync.Mutex
	observer func([]Transaction)
	finished map[string]bool
	nextTx   int
}

// NewSandboxProvider creates a sandbox with the unlock product in its
// catalog.
func NewSandboxProvider() *SandboxProvider {
	return &SandboxProvider{finished: make(map[string]bool)}
}

// FetchProducts resolves known ids immediately on a separate goroutine.
func (s *SandboxProvider) FetchProducts(ids []string, reply func(ProductsResponse, error)) {
	var resp ProductsResponse
	for _, id := range ids {
		if id == ProductID {
			resp.Products = append(resp.Products, Product{
				ID:    ProductID,
				Title: "Stride Unlock",
				Price: "$4.99",
			})
		} else {
			resp.InvalidIDs = append(resp.InvalidIDs, id)
		}
	}
	go reply(resp, nil)
}

// Purchase delivers a successful transaction asynchronously.
func (s *SandboxProvider) Purchase(productID string) {
	s.deliver(Transaction{ID: s.txID(), ProductID: productID, State: TxPurchased})
}

// Restore delivers a restored transaction asynchronously.
func (s *SandboxProvider) Restore() {
	s.deliver(Transaction{ID: s.txID(), ProductID: ProductID, State: TxRestored})
}

// Finish records the acknowledgement.
func (s *SandboxProvider) Finish(txID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished[txID] = true
}

// Observe registers the transaction observer.
func (s *SandboxProvider) Observe(fn func(batch []Transaction)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

// Finished reports whether a transaction has been acknowledged.
func (s *SandboxProvider) Finished(txID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished[txID]
}

func (s *SandboxProvider) txID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTx++
	return fmt.Sprintf("sandbox-tx-%d", s.nextTx)
}

func (s *SandboxProvider) deliver(txs ...Transaction) {
	s.mu.Lock()
	fn := s.observer
	s.mu.Unlock()

	if fn == nil {
		return
	}
	go fn(txs)
}
