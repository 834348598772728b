package unlock

// Product describes one purchasable product as reported by the
// payment provider.
type Product struct {
	ID    string
	Title string
	Price string
}

// ProductsResponse is the outcome of product discovery.
type ProductsResponse struct {
	Products   []Product
	InvalidIDs []string
}

// TransactionState is the outcome of a single payment transaction.
type TransactionState int

const (
	// TxPurchased means the user completed the purchase.
	TxPurchased TransactionState = iota + 1
	// TxRestored means a past purchase was replayed onto this device.
	TxRestored
	// TxFailed means the purchase did not complete.
	TxFailed
	// TxDeferred means the purchase awaits external approval.
	TxDeferred
)

// Transaction is one entry of a transaction-stream batch.
type Transaction struct {
	ID        string
	ProductID string
	State     TransactionState
	Err       error // set for TxFailed
}

// Provider is the external payment service.
//
// All callbacks (the FetchProducts reply and the Observe batches) may
// arrive on arbitrary goroutines; the Manager marshals them onto the
// owner loop before touching any state.
//
// Acknowledgement contract: every transaction handed to the observer
// must eventually be passed to Finish exactly once, except deferred
// transactions. An unfinished transaction is redelivered by the
// provider on next launch - Finish is the sole mechanism preventing
// duplicate processing.
type Provider interface {
	// FetchProducts asynchronously resolves product info for the given
	// identifiers and calls reply exactly once.
	FetchProducts(ids []string, reply func(ProductsResponse, error))

	// Purchase enqueues a payment request. The outcome arrives later
	// through the observer; Purchase itself reports nothing.
	Purchase(productID string)

	// Restore replays prior purchases through the observer.
	Restore()

	// Finish acknowledges a transaction.
	Finish(txID string)

	// Observe registers the transaction observer. Batches are
	// delivered in order; entries within a batch carry no ordering
	// guarantee.
	Observe(fn func(batch []Transaction))
}
