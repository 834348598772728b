package unlock

// State is the observable phase of the purchase request machine.
//
// Transitions:
//
//	Idle                              (constructed already unlocked; no discovery runs)
//	Loading -> Loaded | Failed        (product discovery outcome)
//	Loaded  -> Purchased | Failed | Deferred   (via transaction stream)
//	Failed  -> Loaded                 (retry, only with a cached product)
//	Deferred -> Purchased             (external approval via transaction stream)
//	Purchased                         (terminal)
type State int

const (
	// StateIdle means the entitlement was already unlocked at
	// construction, so product discovery never started.
	StateIdle State = iota
	// StateLoading means product discovery is in flight.
	StateLoading
	// StateLoaded means discovery succeeded and a product is cached.
	StateLoaded
	// StateFailed means discovery or a purchase went wrong.
	StateFailed
	// StatePurchased means the unlock is owned. Terminal.
	StatePurchased
	// StateDeferred means the purchase awaits out-of-band approval
	// (e.g. a guardian confirming a minor's purchase).
	StateDeferred
)

// String implements fmt.Stringer for logs and CLI output.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	case StatePurchased:
		return "purchased"
	case StateDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}
