// Package awards holds the immutable award definitions and the pure
// evaluator that decides whether an award has been earned.
//
// Definitions are loaded exactly once at process start from the
// embedded awards.json and validated against a CUE schema before use.
// Malformed or empty definitions are a fatal startup condition: an
// app running with no awards (or broken criteria) is worse than one
// that refuses to start.
package awards

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed awards.json
var awardsJSON []byte

// Criterion kinds an award can be evaluated against.
const (
	// CriterionItems counts every item ever added.
	CriterionItems = "items"
	// CriterionComplete counts completed items.
	CriterionComplete = "complete"
)

// Award is one immutable award definition. Name doubles as the
// identifier and is unique across the definition set. Awards are never
// created, mutated, or deleted at runtime - they are parameters for
// aggregate queries against the live store.
type Award struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Criterion   string `json:"criterion"`
	Value       int    `json:"value"`
	Image       string `json:"image"`
}

// awardSchema validates the raw definition file before any award is
// trusted. Criterion is a closed enum so a typo in the definitions
// fails loudly at startup instead of silently never unlocking.
const awardSchema = `
#Award: {
	name:        string & !=""
	description: string & !=""
	color:       string & !=""
	criterion:   "items" | "complete"
	value:       int & >0
	image:       string & !=""
}

#Awards: [...#Award]
`

// Load parses and validates the embedded definitions.
// Any error from here is fatal to the caller.
func Load() ([]Award, error) {
	return parse(awardsJSON)
}

func parse(raw []byte) ([]Award, error) {
	cuectx := cuecontext.New()

	schema := cuectx.CompileString(awardSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile award schema: %w", err)
	}

	expr, err := cuejson.Extract("awards.json", raw)
	if err != nil {
		return nil, fmt.Errorf("parse award definitions: %w", err)
	}
	data := cuectx.BuildExpr(expr)
	if err := data.Err(); err != nil {
		return nil, fmt.Errorf("build award definitions: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Awards")).Unify(data)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, fmt.Errorf("validate award definitions: %w", err)
	}

	var awards []Award
	if err := json.Unmarshal(raw, &awards); err != nil {
		return nil, fmt.Errorf("decode award definitions: %w", err)
	}
	if len(awards) == 0 {
		return nil, fmt.Errorf("award definitions are empty")
	}

	seen := make(map[string]bool, len(awards))
	for _, a := range awards {
		if seen[a.Name] {
			return nil, fmt.Errorf("duplicate award name %q", a.Name)
		}
		seen[a.Name] = true
	}

	return awards, nil
}
