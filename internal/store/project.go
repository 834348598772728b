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

// Project table fields usable in predicates and sorts.
const (
	ProjectTitle   query.Field = "title"
	ProjectColor   query.Field = "color"
	ProjectClosed  query.Field = "closed"
	ProjectCreated query.Field = "created"
)

const projectColumns = "id, title, detail, color, closed, created, reminder"

// ProjectDraft carries the caller-supplied fields for a new project.
// The id and creation timestamp are assigned at insert time.
type ProjectDraft struct {
	Title  string
	Detail string
	Color  string // defaults to model.DefaultColor when empty
}

// ProjectChanges is a partial update. Nil fields are left untouched.
// Reminder changes go through SetProjectReminder, which needs
// set/clear semantics a pointer field can't express.
type ProjectChanges struct {
	Title  *string
	Detail *string
	Color  *string
	Closed *bool
}

// ProjectQuery selects an ordered subset of projects.
type ProjectQuery struct {
	Where query.Predicate
	Sort  []query.Sort
	Limit int // 0 means no limit
}

// ProjectCreationSort orders newest projects first.
func ProjectCreationSort() []query.Sort {
	return []query.Sort{query.Desc(ProjectCreated)}
}

// ProjectTitleSort orders projects alphabetically.
func ProjectTitleSort() []query.Sort {
	return []query.Sort{query.Asc(ProjectTitle)}
}

// CreateProject inserts a new project and returns it with its assigned
// id and creation timestamp.
func (s *Store) CreateProject(ctx context.Context, draft ProjectDraft) (model.Project, error) {
	color := draft.Color
	if color == "" {
		color = model.DefaultColor
	}
	if !model.ValidColor(color) {
		return model.Project{}, fmt.Errorf("create project: color %q not in palette", color)
	}

	p := model.Project{
		ID:      s.ids.Generate(),
		Title:   draft.Title,
		Detail:  draft.Detail,
		Color:   color,
		Created: s.now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, title, detail, color, closed, created, reminder)
		VALUES (?, ?, ?, ?, 0, ?, NULL)
	`, p.ID, p.Title, p.Detail, p.Color, p.Created.UnixNano())
	if err != nil {
		return model.Project{}, fmt.Errorf("create project: %w", err)
	}

	return p, nil
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = ?", id)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return model.Project{}, &NotFoundError{Kind: "project", ID: id}
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// UpdateProject applies a partial update to a project.
// Returns NotFoundError if the id does not exist.
func (s *Store) UpdateProject(ctx context.Context, id string, changes ProjectChanges) error {
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
	if changes.Color != nil {
		if !model.ValidColor(*changes.Color) {
			return fmt.Errorf("update project: color %q not in palette", *changes.Color)
		}
		sets = append(sets, "color = ?")
		args = append(args, *changes.Color)
	}
	if changes.Closed != nil {
		sets = append(sets, "closed = ?")
		args = append(args, boolToInt(*changes.Closed))
	}

	if len(sets) == 0 {
		// Nothing to change, but the contract still requires NotFound
		// for a missing id.
		_, err := s.GetProject(ctx, id)
		return err
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return requireRow(res, "project", id)
}

// SetProjectReminder persists the daily reminder time for a project,
// or clears it when t is nil.
func (s *Store) SetProjectReminder(ctx context.Context, id string, t *model.TimeOfDay) error {
	var value any
	if t != nil {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("set reminder: %w", err)
		}
		value = t.String()
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET reminder = ? WHERE id = ?", value, id)
	if err != nil {
		return fmt.Errorf("set reminder: %w", err)
	}
	return requireRow(res, "project", id)
}

// DeleteProject removes a project and every item it owns as one
// transaction - no partial cascade is observable. Returns the ids of
// the deleted items so the caller can retract search-index entries.
func (s *Store) DeleteProject(ctx context.Context, id string) (itemIDs []string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("delete project: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	rows, err := tx.QueryContext(ctx, "SELECT id FROM items WHERE project_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("delete project: list items: %w", err)
	}
	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("delete project: scan item: %w", err)
		}
		itemIDs = append(itemIDs, itemID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete project: iterate items: %w", err)
	}
	rows.Close()

	// The ON DELETE CASCADE constraint removes the items in the same
	// statement, keeping the cascade atomic.
	res, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("delete project: %w", err)
	}
	if err := requireRow(res, "project", id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("delete project: commit: %w", err)
	}
	return itemIDs, nil
}

// ListProjects runs a typed query against the projects table.
func (s *Store) ListProjects(ctx context.Context, q ProjectQuery) ([]model.Project, error) {
	where, params, err := query.Compile(q.Where)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	stmt := "SELECT " + projectColumns + " FROM projects WHERE " + where +
		" ORDER BY " + query.CompileSort(q.Sort, "id")
	if q.Limit > 0 {
		stmt += " LIMIT ?"
		params = append(params, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// CountProjects counts projects matching the predicate without
// materializing records.
func (s *Store) CountProjects(ctx context.Context, where query.Predicate) (int, error) {
	sql, params, err := query.Compile(where)
	if err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}

	var n int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM projects WHERE "+sql, params...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(sc scanner) (model.Project, error) {
	var p model.Project
	var closed int64
	var created int64
	var reminder sql.NullString

	if err := sc.Scan(&p.ID, &p.Title, &p.Detail, &p.Color, &closed, &created, &reminder); err != nil {
		return model.Project{}, err
	}

	p.Closed = closed != 0
	p.Created = time.Unix(0, created)
	if reminder.Valid {
		t, err := model.ParseTimeOfDay(reminder.String)
		if err != nil {
			return model.Project{}, fmt.Errorf("scan project %s: %w", p.ID, err)
		}
		p.Reminder = &t
	}
	return p, nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
