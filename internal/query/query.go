// Package query defines the predicate and sort vocabulary shared by the
// typed project and item query surfaces, and compiles it to
// parameterized SQL for SQLite.
//
// The vocabulary is deliberately small: equality, ordered comparison,
// and boolean AND/OR composition. Every compiled statement is fully
// parameterized - values are never interpolated into SQL text - and
// every ORDER BY carries a stable id tiebreaker so results are
// deterministic across runs.
package query

// Field names a column of an entity table. Each entity kind declares
// its own Field constants; the vocabulary itself is untyped text.
type Field string

// Predicate is a boolean expression over entity fields.
// Implementations: Eq, Ne, Lt, Le, Gt, Ge, And, Or.
type Predicate interface {
	isPredicate()
}

// Eq matches rows where the field equals the value.
type Eq struct {
	Field Field
	Value any
}

// Ne matches rows where the field differs from the value.
type Ne struct {
	Field Field
	Value any
}

// Lt matches rows where the field is strictly less than the value.
type Lt struct {
	Field Field
	Value any
}

// Le matches rows where the field is less than or equal to the value.
type Le struct {
	Field Field
	Value any
}

// Gt matches rows where the field is strictly greater than the value.
type Gt struct {
	Field Field
	Value any
}

// Ge matches rows where the field is greater than or equal to the value.
type Ge struct {
	Field Field
	Value any
}

// And is the conjunction of its predicates. An empty And is
// vacuously true.
type And struct {
	Predicates []Predicate
}

// Or is the disjunction of its predicates. An empty Or is
// vacuously true, matching the behavior of an absent filter.
type Or struct {
	Predicates []Predicate
}

func (Eq) isPredicate()  {}
func (Ne) isPredicate()  {}
func (Lt) isPredicate()  {}
func (Le) isPredicate()  {}
func (Gt) isPredicate()  {}
func (Ge) isPredicate()  {}
func (And) isPredicate() {}
func (Or) isPredicate()  {}

// Sort is one key of a multi-key ordering. Keys are applied in order
// with the first as primary.
type Sort struct {
	Field     Field
	Ascending bool
}

// Asc builds an ascending sort key.
func Asc(f Field) Sort { return Sort{Field: f, Ascending: true} }

// Desc builds a descending sort key.
func Desc(f Field) Sort { return Sort{Field: f, Ascending: false} }
