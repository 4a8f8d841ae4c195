package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: valid
description: "A valid scenario"
identity: user-1
setup:
  - { product_id: apple, name: Apple, price: "1.00", quantity: 2 }
steps:
  - { op: decrement, product_id: apple }
  - { op: advance, duration: 250ms }
  - { op: fail, store_op: list }
  - { op: login, credential: user-2 }
assertions:
  - { type: count, count: 0 }
  - { type: identity, identity: "" }
  - { type: animations, active: [] }
`

func TestLoadScenario_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "valid", s.Name)
	assert.Equal(t, "user-1", s.Identity)
	require.Len(t, s.Setup, 1)
	assert.Equal(t, 2, s.Setup[0].Quantity)
	require.Len(t, s.Steps, 4)
	assert.Equal(t, "250ms", s.Steps[1].Duration)
	require.Len(t, s.Assertions, 3)
	require.NotNil(t, s.Assertions[0].Count)
	assert.Equal(t, 0, *s.Assertions[0].Count)
	require.NotNil(t, s.Assertions[1].Identity)
	assert.Equal(t, "", *s.Assertions[1].Identity)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownFieldRejected(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "typo"
steps: [{ op: refresh }]
assertion: [{ type: count, count: 0 }]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: `{description: d, steps: [{op: refresh}], assertions: [{type: count, count: 0}]}`,
			want: "name is required",
		},
		{
			name: "missing steps",
			yaml: `{name: n, description: d, assertions: [{type: count, count: 0}]}`,
			want: "steps list is required",
		},
		{
			name: "setup without identity",
			yaml: `{name: n, description: d, setup: [{product_id: a, quantity: 1}], steps: [{op: refresh}], assertions: [{type: count, count: 0}]}`,
			want: "setup requires identity",
		},
		{
			name: "setup zero quantity",
			yaml: `{name: n, description: d, identity: u, setup: [{product_id: a, quantity: 0}], steps: [{op: refresh}], assertions: [{type: count, count: 0}]}`,
			want: "quantity must be at least 1",
		},
		{
			name: "setup negative price",
			yaml: `{name: n, description: d, identity: u, setup: [{product_id: a, price: "-1", quantity: 1}], steps: [{op: refresh}], assertions: [{type: count, count: 0}]}`,
			want: "price must not be negative",
		},
		{
			name: "unknown op",
			yaml: `{name: n, description: d, steps: [{op: checkout}], assertions: [{type: count, count: 0}]}`,
			want: `unknown op "checkout"`,
		},
		{
			name: "item op without product",
			yaml: `{name: n, description: d, steps: [{op: add}], assertions: [{type: count, count: 0}]}`,
			want: "product_id is required for add",
		},
		{
			name: "bad duration",
			yaml: `{name: n, description: d, steps: [{op: advance, duration: soon}], assertions: [{type: count, count: 0}]}`,
			want: "duration",
		},
		{
			name: "login without credential",
			yaml: `{name: n, description: d, steps: [{op: login}], assertions: [{type: count, count: 0}]}`,
			want: "credential is required",
		},
		{
			name: "unknown store op",
			yaml: `{name: n, description: d, steps: [{op: fail, store_op: ensure}], assertions: [{type: count, count: 0}]}`,
			want: `unknown store_op "ensure"`,
		},
		{
			name: "count without value",
			yaml: `{name: n, description: d, steps: [{op: refresh}], assertions: [{type: count}]}`,
			want: "count is required",
		},
		{
			name: "bad total",
			yaml: `{name: n, description: d, steps: [{op: refresh}], assertions: [{type: total, total: lots}]}`,
			want: "total must be a decimal",
		},
		{
			name: "unknown assertion",
			yaml: `{name: n, description: d, steps: [{op: refresh}], assertions: [{type: trace_count}]}`,
			want: `unknown assertion type "trace_count"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
