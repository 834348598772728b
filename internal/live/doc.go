// Package live serializes all store mutation onto a single owner
// goroutine and keeps query subscriptions current.
//
// Every mutation runs as a task on the owner loop; after each mutation
// the loop re-runs every active subscription against the committed
// store state and delivers the new ordered result set to its
// subscriber - but only when it differs from the last delivered set.
// Subscribers therefore never observe a torn, mid-mutation state, and
// updates arrive in mutation order with no coalescing beyond
// skip-if-equal.
//
// The engine does not page or diff-optimize. Dataset sizes are bounded
// by manual user entry, so re-running a handful of SELECTs per
// mutation is cheaper than maintaining incremental diffs.
//
// Asynchronous completions from outside (payment callbacks, permission
// grants) re-enter core state through Dispatch, which marshals them
// onto the same loop. That is the sole synchronization discipline: no
// fine-grained locks around store state.
package live
