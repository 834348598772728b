// Package tracker is the command surface the UI talks to. It routes
// every mutation through the live engine's owner loop, enforces the
// free-tier project gate, keeps the search index fed, and evaluates
// awards against store aggregates.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/stride/internal/awards"
	"github.com/roach88/stride/internal/index"
	"github.com/roach88/stride/internal/live"
	"github.com/roach88/stride/internal/model"
	"github.com/roach88/stride/internal/prefs"
	"github.com/roach88/stride/internal/query"
	"github.com/roach88/stride/internal/remind"
	"github.com/roach88/stride/internal/store"
)

// FreeProjectLimit is the number of open projects allowed without the
// full-version entitlement.
const FreeProjectLimit = 3

// LimitReachedError signals that creating another project needs the
// full version. It is a recoverable, user-facing condition the caller
// surfaces as an upsell prompt - not a fault.
type LimitReachedError struct {
	Open int
}

// Error implements the error interface.
func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("open project limit reached (%d of %d): unlock the full version to add more",
		e.Open, FreeProjectLimit)
}

// IsLimitReached returns true if the error is a LimitReachedError.
// Uses errors.As to handle wrapped errors.
func IsLimitReached(err error) bool {
	var lr *LimitReachedError
	return errors.As(err, &lr)
}

// Tracker wires the core subsystems together. One instance is
// constructed at process start and passed by reference to every
// consumer - no ambient global lookup.
type Tracker struct {
	loop         *live.Engine
	entitlements *prefs.Prefs
	defs         []awards.Award
	indexer      index.Indexer
	reminders    *remind.Scheduler
	log          *slog.Logger
}

// New creates a tracker. The award definitions must come from
// awards.Load; reminders may be nil when no scheduler is wired in.
func New(
	loop *live.Engine,
	entitlements *prefs.Prefs,
	defs []awards.Award,
	indexer index.Indexer,
	reminders *remind.Scheduler,
	log *slog.Logger,
) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	if indexer == nil {
		indexer = index.LogIndexer{Log: log}
	}
	return &Tracker{
		loop:         loop,
		entitlements: entitlements,
		defs:         defs,
		indexer:      indexer,
		reminders:    reminders,
		log:          log,
	}
}

// Awards returns the immutable definition set.
func (t *Tracker) Awards() []awards.Award {
	return t.defs
}

// AddProject creates a project, enforcing the free-tier gate: without
// the entitlement, at most FreeProjectLimit open projects may exist.
// The gate check and the insert run as one task on the owner loop, so
// two concurrent AddProject calls can't both squeeze past the limit.
func (t *Tracker) AddProject(ctx context.Context, draft store.ProjectDraft) (model.Project, error) {
	var created model.Project
	err := t.loop.Do(ctx, func(ctx context.Context) error {
		if !t.entitlements.Unlocked() {
			open, err := t.loop.Store().CountProjects(ctx, query.Eq{Field: store.ProjectClosed, Value: false})
			if err != nil {
				return err
			}
			if open >= FreeProjectLimit {
				return &LimitReachedError{Open: open}
			}
		}

		p, err := t.loop.Store().CreateProject(ctx, draft)
		if err != nil {
			return err
		}
		created = p
		return nil
	})
	return created, err
}

// UpdateProject applies a partial update to a project.
func (t *Tracker) UpdateProject(ctx context.Context, id string, changes store.ProjectChanges) error {
	return t.loop.Do(ctx, func(ctx context.Context) error {
		return t.loop.Store().UpdateProject(ctx, id, changes)
	})
}

// ToggleClosed flips a project between the open and closed views and
// returns the new closed flag.
func (t *Tracker) ToggleClosed(ctx context.Context, id string) (bool, error) {
	var nowClosed bool
	err := t.loop.Do(ctx, func(ctx context.Context) error {
		p, err := t.loop.Store().GetProject(ctx, id)
		if err != nil {
			return err
		}
		nowClosed = !p.Closed
		return t.loop.Store().UpdateProject(ctx, id, store.ProjectChanges{Closed: &nowClosed})
	})
	return nowClosed, err
}

// DeleteProject removes a project and all of its items atomically,
// retracts their index entries, and drops any alert registration.
func (t *Tracker) DeleteProject(ctx context.Context, id string) error {
	var itemIDs []string
	err := t.loop.Do(ctx, func(ctx context.Context) error {
		ids, err := t.loop.Store().DeleteProject(ctx, id)
		if err != nil {
			return err
		}
		itemIDs = ids
		return nil
	})
	if err != nil {
		return err
	}

	if len(itemIDs) > 0 {
		t.indexer.Remove(itemIDs...)
	}
	if t.reminders != nil {
		t.reminders.CancelRegistration(id)
	}
	return nil
}

// AddItem creates an item under an existing project.
func (t *Tracker) AddItem(ctx context.Context, draft store.ItemDraft) (model.Item, error) {
	var created model.Item
	err := t.loop.Do(ctx, func(ctx context.Context) error {
		it, err := t.loop.Store().CreateItem(ctx, draft)
		if err != nil {
			return err
		}
		created = it
		return nil
	})
	return created, err
}

// UpdateItem applies a partial update to an item and emits the
// refreshed tuple to the search index. Index failures never surface.
func (t *Tracker) UpdateItem(ctx context.Context, id string, changes store.ItemChanges) error {
	var updated model.Item
	err := t.loop.Do(ctx, func(ctx context.Context) error {
		if err := t.loop.Store().UpdateItem(ctx, id, changes); err != nil {
			return err
		}
		it, err := t.loop.Store().GetItem(ctx, id)
		if err != nil {
			return err
		}
		updated = it
		return nil
	})
	if err != nil {
		return err
	}

	t.indexer.Index(index.Normalize(index.Entry{
		ItemID:    updated.ID,
		ProjectID: updated.ProjectID,
		Title:     updated.Title,
		Detail:    updated.Detail,
	}))
	t.save(ctx)
	return nil
}

// SetCompleted marks an item complete or incomplete.
func (t *Tracker) SetCompleted(ctx context.Context, id string, completed bool) error {
	return t.UpdateItem(ctx, id, store.ItemChanges{Completed: &completed})
}

// DeleteItem removes an item and retracts its index entry.
func (t *Tracker) DeleteItem(ctx context.Context, id string) error {
	err := t.loop.Do(ctx, func(ctx context.Context) error {
		return t.loop.Store().DeleteItem(ctx, id)
	})
	if err != nil {
		return err
	}
	t.indexer.Remove(id)
	return nil
}

// Projects lists the open or closed view, newest first. Every project
// appears in exactly one of the two views.
func (t *Tracker) Projects(ctx context.Context, closed bool) ([]model.Project, error) {
	var out []model.Project
	err := t.loop.View(ctx, func(ctx context.Context) error {
		ps, err := t.loop.Store().ListProjects(ctx, store.ProjectQuery{
			Where: query.Eq{Field: store.ProjectClosed, Value: closed},
			Sort:  store.ProjectCreationSort(),
		})
		if err != nil {
			return err
		}
		out = ps
		return nil
	})
	return out, err
}

// Items lists a project's items in the given named order.
func (t *Tracker) Items(ctx context.Context, projectID string, order model.SortOrder) ([]model.Item, error) {
	var out []model.Item
	err := t.loop.View(ctx, func(ctx context.Context) error {
		its, err := t.loop.Store().ListItems(ctx, store.ItemQuery{
			Where: query.Eq{Field: store.ItemProject, Value: projectID},
			Sort:  store.ItemSortKeys(order),
		})
		if err != nil {
			return err
		}
		out = its
		return nil
	})
	return out, err
}

// Counts returns the aggregates award evaluation runs against.
func (t *Tracker) Counts(ctx context.Context) (awards.Counts, error) {
	var c awards.Counts
	err := t.loop.View(ctx, func(ctx context.Context) error {
		items, err := t.loop.Store().CountItems(ctx, nil)
		if err != nil {
			return err
		}
		completed, err := t.loop.Store().CountItems(ctx, query.Eq{Field: store.ItemCompleted, Value: true})
		if err != nil {
			return err
		}
		c = awards.Counts{Items: items, Completed: completed}
		return nil
	})
	return c, err
}

// HasEarned evaluates one award against current aggregates.
func (t *Tracker) HasEarned(ctx context.Context, a awards.Award) (bool, error) {
	c, err := t.Counts(ctx)
	if err != nil {
		return false, err
	}
	return awards.Earned(a, c), nil
}

// EarnedAwards evaluates the whole definition set.
func (t *Tracker) EarnedAwards(ctx context.Context) ([]awards.Status, error) {
	c, err := t.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return awards.Evaluate(t.defs, c), nil
}

// save checkpoints the store. Best-effort: a failed save means changes
// stay in the WAL until the next successful checkpoint, which is fine
// because every write is already statement-durable.
func (t *Tracker) save(ctx context.Context) {
	if err := t.loop.Store().Save(ctx); err != nil {
		t.log.Warn("save failed", "err", err)
	}
}
