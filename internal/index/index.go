// Package index is the narrow seam to the external search index.
// The core emits a tuple per item update and removals per delete; it
// never depends on indexing succeeding.
package index

import (
	"log/slog"

	"golang.org/x/text/unicode/norm"
)

// Entry is the tuple handed to the search index for one item. The
// project id acts as the grouping domain so a project deletion can
// retract everything under it.
type Entry struct {
	ItemID    string
	ProjectID string
	Title     string
	Detail    string
}

// Indexer receives index updates. Implementations must tolerate
// removals for ids that were never indexed.
type Indexer interface {
	Index(e Entry)
	Remove(itemIDs ...string)
}

// Normalize puts user-entered text into NFC before it leaves the
// process, so the external index sees one canonical form regardless
// of how the text was composed at input time.
func Normalize(e Entry) Entry {
	e.Title = norm.NFC.String(e.Title)
	e.Detail = norm.NFC.String(e.Detail)
	return e
}

// LogIndexer records index traffic to the structured log. It is the
// default Indexer when no real search integration is wired in.
type LogIndexer struct {
	Log *slog.Logger
}

// Index implements Indexer.
func (l LogIndexer) Index(e Entry) {
	l.logger().Debug("index item", "item", e.ItemID, "project", e.ProjectID, "title", e.Title)
}

// Remove implements Indexer.
func (l LogIndexer) Remove(itemIDs ...string) {
	l.logger().Debug("remove indexed items", "items", itemIDs)
}

func (l LogIndexer) logger() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return slog.Default()
}
