package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "golden file is named after the scenario")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Steps: []Step{
			{Op: OpAdd, ProductID: "apple", Name: "Apple", Price: "2.00"},
		},
		Assertions: []Assertion{
			{Type: AssertQuantity, ProductID: "apple", Quantity: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 2, "setup event plus one step")
	assert.Equal(t, "setup", result.Trace[0].Op)
	assert.Equal(t, 1, result.Trace[1].Step)
	require.NotNil(t, result.Trace[1].Applied)
	assert.True(t, *result.Trace[1].Applied)
	assert.Equal(t, "2.00", result.Trace[1].Total)

	require.NotNil(t, result.Identity)
	assert.Equal(t, "anon-1", result.Identity.ID)
}

func TestRun_UnexpectedErrorFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected",
		Description: "A failing write without expect_error fails the run",
		Steps: []Step{
			{Op: OpFail, StoreOp: "upsert"},
			{Op: OpAdd, ProductID: "apple", Price: "1.00"},
		},
		Assertions: []Assertion{
			{Type: AssertCount, Count: intPtr(0)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Equal(t, "STORE_UNAVAILABLE", result.Trace[2].Error)
}

func TestRun_MissingExpectedError(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing_error",
		Description: "expect_error on a step that succeeds fails the run",
		Steps: []Step{
			{Op: OpAdd, ProductID: "apple", Price: "1.00", ExpectError: "STORE_UNAVAILABLE"},
		},
		Assertions: []Assertion{
			{Type: AssertCount, Count: intPtr(1)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected error "STORE_UNAVAILABLE"`)
}

func TestRun_FailedAssertionReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_total",
		Description: "A wrong total is reported with expected and actual",
		Identity:    "user-1",
		Setup:       []SetupItem{{ProductID: "apple", Name: "Apple", Price: "1.00", Quantity: 2}},
		Steps:       []Step{{Op: OpRefresh}},
		Assertions:  []Assertion{{Type: AssertTotal, Total: "3.00"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Expected: total 3.00")
	assert.Contains(t, result.Errors[0], "Actual: total 2.00")
	assert.Contains(t, result.Errors[0], "apple x2 @ 1.00")
}

func TestRun_SetupSignsIn(t *testing.T) {
	scenario := &Scenario{
		Name:        "setup",
		Description: "Setup seeds the named identity's cart",
		Identity:    "user-9",
		Setup: []SetupItem{
			{ProductID: "pear", Name: "Pear", Price: "0.75", Quantity: 4},
		},
		Steps: []Step{{Op: OpIncrement, ProductID: "pear"}},
		Assertions: []Assertion{
			{Type: AssertIdentity, Identity: strPtr("user-9"), Anonymous: boolPtr(false)},
			{Type: AssertQuantity, ProductID: "pear", Quantity: 5},
			{Type: AssertTotal, Total: "3.75"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 4, result.Trace[0].Count)
	assert.Equal(t, []string{"badge"}, result.Trace[0].Active)
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
