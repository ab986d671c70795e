package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismlang/prism/internal/ast"
)

// TestScenarios runs every scenario under testdata/scenarios and compares
// each patch trace against its golden file.
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			RunWithGolden(t, scenario)
		})
	}
}

// TestLoadScenario_Validation tests rejection of malformed scenarios.
func TestLoadScenario_Validation(t *testing.T) {
	dir := t.TempDir()
	program := filepath.Join(dir, "app.prism")
	require.NoError(t, os.WriteFile(program, []byte(`@app "X"`), 0o644))

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing name",
			content: `
description: d
program: app.prism
assertions:
  - type: final_state
    var: x
    equals: 1
`,
		},
		{
			name: "missing program",
			content: `
name: s
description: d
assertions:
  - type: final_state
    var: x
    equals: 1
`,
		},
		{
			name: "program not found",
			content: `
name: s
description: d
program: missing.prism
assertions:
  - type: final_state
    var: x
    equals: 1
`,
		},
		{
			name: "no assertions",
			content: `
name: s
description: d
program: app.prism
steps:
  - action: go
`,
		},
		{
			name: "step with two events",
			content: `
name: s
description: d
program: app.prism
steps:
  - action: go
    click: "0"
assertions:
  - type: final_state
    var: x
    equals: 1
`,
		},
		{
			name: "unknown assertion type",
			content: `
name: s
description: d
program: app.prism
assertions:
  - type: bogus
`,
		},
		{
			name: "unknown yaml field",
			content: `
name: s
description: d
program: app.prism
assertion:
  - type: final_state
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write("scenario.yaml", tt.content)
			_, err := LoadScenario(path)
			assert.Error(t, err)
		})
	}
}

// TestRun_UnexpectedError tests that a step failure without expect_error
// aborts the run.
func TestRun_UnexpectedError(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/division_abort.yaml")
	require.NoError(t, err)

	scenario.Steps[0].ExpectError = ""
	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected error")
}

// TestRun_ExpectedErrorMissing tests that a step expected to fail but
// succeeding aborts the run.
func TestRun_ExpectedErrorMissing(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/counter_click.yaml")
	require.NoError(t, err)

	scenario.Steps[0].ExpectError = "DIVISION_BY_ZERO"
	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step succeeded")
}

// TestVerify_Failures tests assertion failure reporting.
func TestVerify_Failures(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/counter_click.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	bad := &Scenario{Assertions: []Assertion{
		{Type: AssertFinalState, Var: "count", Equals: 99},
	}}
	err = Verify(result, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count")

	bad = &Scenario{Assertions: []Assertion{
		{Type: AssertNodeText, Node: "0.9", Equals: "x"},
	}}
	err = Verify(result, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

// TestValueFromYAML tests scenario value conversion.
func TestValueFromYAML(t *testing.T) {
	tests := []struct {
		in   any
		want ast.Value
	}{
		{nil, ast.Null{}},
		{true, ast.Bool(true)},
		{int(3), ast.Int(3)},
		{int64(3), ast.Int(3)},
		{float64(2.5), ast.Float(2.5)},
		{"hi", ast.Str("hi")},
	}
	for _, tt := range tests {
		got, err := valueFromYAML(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := valueFromYAML([]any{1})
	assert.Error(t, err)
}
