package awards

// Counts carries the store aggregates the evaluator needs. Keeping it
// a plain value keeps Earned a pure function the UI can call as often
// as it likes.
type Counts struct {
	// Items is the total number of items, complete or not.
	Items int
	// Completed is the number of completed items.
	Completed int
}

// Earned reports whether the award's criterion is met by the given
// aggregate counts. An unknown criterion is never earned; the loader's
// schema validation makes that unreachable for embedded definitions.
func Earned(a Award, c Counts) bool {
	switch a.Criterion {
	case CriterionItems:
		return c.Items >= a.Value
	case CriterionComplete:
		return c.Completed >= a.Value
	default:
		return false
	}
}

// Status pairs an award with its evaluated earned flag.
type Status struct {
	Award  Award
	Earned bool
}

// Evaluate applies Earned across a definition set, preserving order.
func Evaluate(defs []Award, c Counts) []Status {
	out := make([]Status, len(defs))
	for i, a := range defs {
		out[i] = Status{Award: a, Earned: Earned(a, c)}
	}
	return out
}
