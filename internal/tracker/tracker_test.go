package tracker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stride/internal/awards"
	"github.com/roach88/stride/internal/index"
	"github.com/roach88/stride/internal/live"
	"github.com/roach88/stride/internal/model"
	"github.com/roach88/stride/internal/prefs"
	"github.com/roach88/stride/internal/store"
)

// fakeIndexer records index traffic for assertions.
type fakeIndexer struct {
	mu      sync.Mutex
	entries map[string]index.Entry
	removed []string
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{entries: make(map[string]index.Entry)}
}

func (f *fakeIndexer) Index(e index.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.ItemID] = e
}

func (f *fakeIndexer) Remove(itemIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range itemIDs {
		delete(f.entries, id)
		f.removed = append(f.removed, id)
	}
}

func (f *fakeIndexer) entry(id string) (index.Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	return e, ok
}

type fixture struct {
	tracker *Tracker
	prefs   *prefs.Prefs
	indexer *fakeIndexer
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()
	dir := t.TempDir()

	pref, err := prefs.Load(filepath.Join(dir, "prefs.yaml"))
	require.NoError(t, err)

	s, err := store.Open(filepath.Join(dir, "test.db"),
		store.WithIDGenerator(store.NewFixedGenerator(ids...)))
	require.NoError(t, err)

	loop := live.New(s, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(context.Background())
	}()
	t.Cleanup(func() {
		loop.Stop()
		<-done
		s.Close()
	})

	defs, err := awards.Load()
	require.NoError(t, err)

	idx := newFakeIndexer()
	return &fixture{
		tracker: New(loop, pref, defs, idx, nil, nil),
		prefs:   pref,
		indexer: idx,
	}
}

func TestAddProject_FreeTierLimit(t *testing.T) {
	f := newFixture(t, "p1", "p2", "p3")
	ctx := context.Background()

	for i := 0; i < FreeProjectLimit; i++ {
		_, err := f.tracker.AddProject(ctx, store.ProjectDraft{Title: "Project"})
		require.NoError(t, err)
	}

	_, err := f.tracker.AddProject(ctx, store.ProjectDraft{Title: "One too many"})
	require.Error(t, err)
	assert.True(t, IsLimitReached(err))
	assert.Contains(t, err.Error(), "unlock")

	// Nothing was inserted past the gate.
	open, listErr := f.tracker.Projects(ctx, false)
	require.NoError(t, listErr)
	assert.Len(t, open, FreeProjectLimit)
}

func TestAddProject_ClosedProjectsDoNotCount(t *testing.T) {
	f := newFixture(t, "p1", "p2", "p3", "p4")
	ctx := context.Background()

	for i := 0; i < FreeProjectLimit; i++ {
		_, err := f.tracker.AddProject(ctx, store.ProjectDraft{Title: "Project"})
		require.NoError(t, err)
	}

	closed, err := f.tracker.ToggleClosed(ctx, "p1")
	require.NoError(t, err)
	require.True(t, closed)

	_, err = f.tracker.AddProject(ctx, store.ProjectDraft{Title: "Fits now"})
	assert.NoError(t, err, "only open projects count toward the limit")
}

func TestAddProject_UnlockedBypassesLimit(t *testing.T) {
	f := newFixture(t, "p1", "p2", "p3", "p4", "p5")
	ctx := context.Background()

	require.NoError(t, f.prefs.Unlock())

	for i := 0; i < FreeProjectLimit+2; i++ {
		_, err := f.tracker.AddProject(ctx, store.ProjectDraft{Title: "Project"})
		require.NoError(t, err)
	}
}

func TestAddProject_DeleteFreesSlot(t *testing.T) {
	f := newFixture(t, "p1", "p2", "p3", "p4")
	ctx := context.Background()

	for i := 0; i < FreeProjectLimit; i++ {
		_, err := f.tracker.AddProject(ctx, store.ProjectDraft{Title: "Project"})
		require.NoError(t, err)
	}

	require.NoError(t, f.tracker.DeleteProject(ctx, "p2"))

	_, err := f.tracker.AddProject(ctx, store.ProjectDraft{Title: "Fits again"})
	assert.NoError(t, err)
}

func TestIsLimitReached_OtherErrors(t *testing.T) {
	assert.False(t, IsLimitReached(nil))
	assert.False(t, IsLimitReached(context.Canceled))
	assert.True(t, IsLimitReached(&LimitReachedError{Open: 3}))
}

func TestToggleClosed_RoundTrip(t *testing.T) {
	f := newFixture(t, "p1")
	ctx := context.Background()

	_, err := f.tracker.AddProject(ctx, store.ProjectDraft{Title: "Garden"})
	require.NoError(t, err)

	closed, err := f.tracker.ToggleClosed(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, closed)

	closedList, err := f.tracker.Projects(ctx, true)
	require.NoError(t, err)
	require.Len(t, closedList, 1)

	closed, err = f.tracker.ToggleClosed(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestUpdateItem_FeedsIndexNormalized(t *testing.T) {
	f := newFixture(t, "p1", "i1")
	ctx := context.Background()

	_, err := f.tracker.AddProject(ctx, store.ProjectDraft{Title: "Garden"})
	require.NoError(t, err)
	_, err = f.tracker.AddItem(ctx, store.ItemDraft{ProjectID: "p1", Title: "seed"})
	require.NoError(t, err)

	// "e" followed by a combining acute accent; the index must see the
	// precomposed form.
	title := "cafe\u0301"
	require.NoError(t, f.tracker.UpdateItem(ctx, "i1", store.ItemChanges{Title: &title}))

	e, ok := f.indexer.entry("i1")
	require.True(t, ok)
	assert.Equal(t, "caf\u00e9", e.Title)
	assert.Equal(t, "p1", e.ProjectID)
}

func TestDeleteItem_RemovesIndexEntry(t *testing.T) {
	f := newFixture(t, "p1", "i1")
	ctx := context.Background()

	_, err := f.tracker.AddProject(ctx, store.ProjectDraft{Title: "Garden"})
	require.NoError(t, err)
	_, err = f.tracker.AddItem(ctx, store.ItemDraft{ProjectID: "p1", Title: "seed"})
	require.NoError(t, err)

	title := "seeds"
	require.NoError(t, f.tracker.UpdateItem(ctx, "i1", store.ItemChanges{Title: &title}))

	require.NoError(t, f.tracker.DeleteItem(ctx, "i1"))
	_, ok := f.indexer.entry("i1")
	assert.False(t, ok)
}

func TestDeleteProject_RetractsAllItemEntries(t *testing.T) {
	f := newFixture(t, "p1", "i1", "i2")
	ctx := context.Background()

	_, err := f.tracker.AddProject(ctx, store.ProjectDraft{Title: "Garden"})
	require.NoError(t, err)
	for _, title := range []string{"a", "b"} {
		_, err = f.tracker.AddItem(ctx, store.ItemDraft{ProjectID: "p1", Title: title})
		require.NoError(t, err)
	}

	require.NoError(t, f.tracker.DeleteProject(ctx, "p1"))
	assert.ElementsMatch(t, []string{"i1", "i2"}, f.indexer.removed)

	items, err := f.tracker.Items(ctx, "p1", model.SortOptimized)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCountsAndAwards(t *testing.T) {
	f := newFixture(t, "p1", "i1", "i2")
	ctx := context.Background()

	_, err := f.tracker.AddProject(ctx, store.ProjectDraft{Title: "Garden"})
	require.NoError(t, err)
	for _, title := range []string{"a", "b"} {
		_, err = f.tracker.AddItem(ctx, store.ItemDraft{ProjectID: "p1", Title: title})
		require.NoError(t, err)
	}
	require.NoError(t, f.tracker.SetCompleted(ctx, "i1", true))

	c, err := f.tracker.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, awards.Counts{Items: 2, Completed: 1}, c)

	statuses, err := f.tracker.EarnedAwards(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, len(f.tracker.Awards()))

	earned := make(map[string]bool)
	for _, s := range statuses {
		earned[s.Award.Name] = s.Earned
	}
	assert.True(t, earned["First Steps"], "first item added")
	assert.True(t, earned["Done and Dusted"], "first item completed")
	assert.False(t, earned["Getting Organized"], "ten items not reached")

	// Un-completing moves the aggregate back down.
	require.NoError(t, f.tracker.SetCompleted(ctx, "i1", false))
	c, err = f.tracker.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, awards.Counts{Items: 2, Completed: 0}, c)
}

func TestHasEarned(t *testing.T) {
	f := newFixture(t, "p1", "i1")
	ctx := context.Background()

	_, err := f.tracker.AddProject(ctx, store.ProjectDraft{Title: "Garden"})
	require.NoError(t, err)
	_, err = f.tracker.AddItem(ctx, store.ItemDraft{ProjectID: "p1", Title: "a"})
	require.NoError(t, err)

	got, err := f.tracker.HasEarned(ctx, awards.Award{Name: "x", Criterion: awards.CriterionItems, Value: 1})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = f.tracker.HasEarned(ctx, awards.Award{Name: "y", Criterion: awards.CriterionComplete, Value: 1})
	require.NoError(t, err)
	assert.False(t, got)
}
