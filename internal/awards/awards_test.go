package awards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedDefinitions(t *testing.T) {
	defs, err := Load()
	require.NoError(t, err)
	require.Len(t, defs, 16)

	seen := make(map[string]bool)
	for _, a := range defs {
		assert.False(t, seen[a.Name], "duplicate name %q", a.Name)
		seen[a.Name] = true
		assert.NotEmpty(t, a.Description, a.Name)
		assert.Contains(t, []string{CriterionItems, CriterionComplete}, a.Criterion, a.Name)
		assert.Positive(t, a.Value, a.Name)
	}
}

func TestParse_RejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"empty set", `[]`},
		{"unknown criterion", `[{"name":"X","description":"d","color":"Gold","criterion":"streak","value":1,"image":"star"}]`},
		{"zero value", `[{"name":"X","description":"d","color":"Gold","criterion":"items","value":0,"image":"star"}]`},
		{"missing name", `[{"name":"","description":"d","color":"Gold","criterion":"items","value":1,"image":"star"}]`},
		{"duplicate names", `[
			{"name":"X","description":"d","color":"Gold","criterion":"items","value":1,"image":"star"},
			{"name":"X","description":"d","color":"Gold","criterion":"items","value":2,"image":"star"}
		]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestEarned(t *testing.T) {
	items := Award{Name: "A", Criterion: CriterionItems, Value: 10}
	complete := Award{Name: "B", Criterion: CriterionComplete, Value: 10}

	tests := []struct {
		name   string
		award  Award
		counts Counts
		want   bool
	}{
		{"items below", items, Counts{Items: 9}, false},
		{"items exact", items, Counts{Items: 10}, true},
		{"items above", items, Counts{Items: 11}, true},
		{"items ignores completed", items, Counts{Items: 0, Completed: 99}, false},
		{"complete below", complete, Counts{Items: 99, Completed: 9}, false},
		{"complete exact", complete, Counts{Completed: 10}, true},
		{"unknown criterion never earned", Award{Criterion: "streak", Value: 1}, Counts{Items: 99, Completed: 99}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Earned(tt.award, tt.counts))
		})
	}
}

func TestEvaluate_PreservesOrder(t *testing.T) {
	defs := []Award{
		{Name: "one", Criterion: CriterionItems, Value: 1},
		{Name: "ten", Criterion: CriterionItems, Value: 10},
		{Name: "done", Criterion: CriterionComplete, Value: 1},
	}

	got := Evaluate(defs, Counts{Items: 5, Completed: 0})
	require.Len(t, got, 3)
	assert.Equal(t, "one", got[0].Award.Name)
	assert.True(t, got[0].Earned)
	assert.False(t, got[1].Earned)
	assert.False(t, got[2].Earned)
}

// The thresholds mirror the shipped definition file: completing or
// adding the same number of items earns the matching pair.
func TestLoad_ThresholdLadder(t *testing.T) {
	defs, err := Load()
	require.NoError(t, err)

	want := []int{1, 10, 20, 50, 100, 250, 500, 1000}
	var items, complete []int
	for _, a := range defs {
		switch a.Criterion {
		case CriterionItems:
			items = append(items, a.Value)
		case CriterionComplete:
			complete = append(complete, a.Value)
		}
	}
	assert.Equal(t, want, items)
	assert.Equal(t, want, complete)
}
