package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/stride/internal/model"
	"github.com/roach88/stride/internal/query"
)

// Item table fields usable in predicates and sorts.
const (
	ItemTitle     query.Field = "title"
	ItemProject   query.Field = "project_id"
	ItemPriority  query.Field = "priority"
	ItemCompleted query.Field = "completed"
	ItemCreated   query.Field = "created"
)

const itemColumns = "id, project_id, title, detail, priority, completed, created"

// ItemDraft carries the caller-supplied fields for a new item.
type ItemDraft struct {
	ProjectID string
	Title     string
	Detail    string
	Priority  int // defaults to PriorityMedium when zero
}

// ItemChanges is a partial update. Nil fields are left untouched.
type ItemChanges struct {
	Title     *string
	Detail    *string
	Priority  *int
	Completed *bool
}

// ItemQuery selects an ordered subset of items.
type ItemQuery struct {
	Where query.Predicate
	Sort  []query.Sort
	Limit int // 0 means no limit
}

// ItemSortKeys maps the named item orderings onto the generic sort
// vocabulary. "Optimized" puts incomplete items first, then higher
// priority, then oldest first.
func ItemSortKeys(order model.SortOrder) []query.Sort {
	switch order {
	case model.SortCreation:
		return []query.Sort{query.Desc(ItemCreated)}
	case model.SortTitle:
		return []query.Sort{query.Asc(ItemTitle)}
	default:
		return []query.Sort{
			query.Asc(ItemCompleted),
			query.Desc(ItemPriority),
			query.Asc(ItemCreated),
		}
	}
}

// CreateItem inserts a new item under an existing project and returns
// it with its assigned id and creation timestamp.
// Returns NotFoundError if the owning project does not exist.
func (s *Store) CreateItem(ctx context.Context, draft ItemDraft) (model.Item, error) {
	priority := draft.Priority
	if priority == 0 {
		priority = model.PriorityMedium
	}
	if priority < model.PriorityLow || priority > model.PriorityHigh {
		return model.Item{}, fmt.Errorf("create item: priority %d out of range", priority)
	}

	it := model.Item{
		ID:        s.ids.Generate(),
		ProjectID: draft.ProjectID,
		Title:     draft.Title,
		Detail:    draft.Detail,
		Priority:  priority,
		Created:   s.now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Item{}, fmt.Errorf("create item: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Verify the owning project exists so a bad reference surfaces as
	// NotFound rather than a raw constraint violation.
	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM projects WHERE id = ?", draft.ProjectID).Scan(&exists)
	if err != nil {
		return model.Item{}, fmt.Errorf("create item: %w", err)
	}
	if exists == 0 {
		return model.Item{}, &NotFoundError{Kind: "project", ID: draft.ProjectID}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO items (id, project_id, title, detail, priority, completed, created)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, it.ID, it.ProjectID, it.Title, it.Detail, it.Priority, it.Created.UnixNano())
	if err != nil {
		return model.Item{}, fmt.Errorf("create item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Item{}, fmt.Errorf("create item: commit: %w", err)
	}
	return it, nil
}

// GetItem fetches a single item by id.
func (s *Store) GetItem(ctx context.Context, id string) (model.Item, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = ?", id)

	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return model.Item{}, &NotFoundError{Kind: "item", ID: id}
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// UpdateItem applies a partial update to an item.
// Returns NotFoundError if the id does not exist.
func (s *Store) UpdateItem(ctx context.Context, id string, changes ItemChanges) error {
	var sets []string
	var args []any

	if changes.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *changes.Title)
	}
	if changes.Detail != nil {
		sets = append(sets, "detail = ?")
		args = append(args, *changes.Detail)
	}
	if changes.Priority != nil {
		p := *changes.Priority
		if p < model.PriorityLow || p > model.PriorityHigh {
			return fmt.Errorf("update item: priority %d out of range", p)
		}
		sets = append(sets, "priority = ?")
		args = append(args, p)
	}
	if changes.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, boolToInt(*changes.Completed))
	}

	if len(sets) == 0 {
		_, err := s.GetItem(ctx, id)
		return err
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return requireRow(res, "item", id)
}

// DeleteItem removes a single item.
// Returns NotFoundError if the id does not exist.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return requireRow(res, "item", id)
}

// ListItems runs a typed query against the items table.
func (s *Store) ListItems(ctx context.Context, q ItemQuery) ([]model.Item, error) {
	where, params, err := query.Compile(q.Where)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	stmt := "SELECT " + itemColumns + " FROM items WHERE " + where +
		" ORDER BY " + query.CompileSort(q.Sort, "id")
	if q.Limit > 0 {
		stmt += " LIMIT ?"
		params = append(params, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// CountItems counts items matching the predicate without materializing
// records.
func (s *Store) CountItems(ctx context.Context, where query.Predicate) (int, error) {
	sql, params, err := query.Compile(where)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}

	var n int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE "+sql, params...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

func scanItem(sc scanner) (model.Item, error) {
	var it model.Item
	var completed int64
	var created int64

	if err := sc.Scan(&it.ID, &it.ProjectID, &it.Title, &it.Detail, &it.Priority, &completed, &created); err != nil {
		return model.Item{}, err
	}

	it.Completed = completed != 0
	it.Created = time.Unix(0, created)
	return it, nil
}
