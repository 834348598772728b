package query

import (
	"fmt"
	"strings"
	"time"
)

// Compile converts a predicate to a SQL WHERE fragment plus its
// parameters. A nil predicate compiles to a tautology so callers can
// pass filters through unconditionally.
//
// Values are always bound through ? placeholders, never interpolated.
func Compile(p Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case Eq:
		return compileCompare(pred.Field, "=", pred.Value)
	case Ne:
		return compileCompare(pred.Field, "<>", pred.Value)
	case Lt:
		return compileCompare(pred.Field, "<", pred.Value)
	case Le:
		return compileCompare(pred.Field, "<=", pred.Value)
	case Gt:
		return compileCompare(pred.Field, ">", pred.Value)
	case Ge:
		return compileCompare(pred.Field, ">=", pred.Value)
	case And:
		return compileJunction(pred.Predicates, " AND ")
	case Or:
		return compileJunction(pred.Predicates, " OR ")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// CompileSort converts sort keys to an ORDER BY clause body.
// The tiebreak field is always appended last so equal rows have a
// deterministic order regardless of insertion history.
func CompileSort(keys []Sort, tiebreak Field) string {
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		dir := "DESC"
		if k.Ascending {
			dir = "ASC"
		}
		parts = append(parts, fmt.Sprintf("%s %s", k.Field, dir))
	}
	// COLLATE BINARY keeps text ordering identical across SQLite builds.
	parts = append(parts, fmt.Sprintf("%s ASC COLLATE BINARY", tiebreak))
	return strings.Join(parts, ", ")
}

func compileCompare(f Field, op string, v any) (string, []any, error) {
	param, err := toParam(v)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", f, err)
	}
	return fmt.Sprintf("%s %s ?", f, op), []any{param}, nil
}

func compileJunction(preds []Predicate, sep string) (string, []any, error) {
	if len(preds) == 0 {
		return "1 = 1", nil, nil
	}

	var parts []string
	var params []any
	for _, p := range preds {
		sql, ps, err := Compile(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		params = append(params, ps...)
	}
	return strings.Join(parts, sep), params, nil
}

// toParam converts a predicate value to a driver-friendly SQL
// parameter. Booleans become 0/1 and times become unix nanoseconds,
// matching the column encodings in the store schema.
func toParam(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case time.Time:
		return val.UnixNano(), nil
	case nil:
		return nil, fmt.Errorf("nil value not allowed in predicate")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
