package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismlang/prism/internal/ast"
	"github.com/prismlang/prism/internal/parser"
	"github.com/prismlang/prism/internal/sandbox"
	"github.com/prismlang/prism/internal/state"
	"github.com/prismlang/prism/internal/view"
)

const counterSrc = `
@app "Counter"
@version 1

state {
  count: 0
}

view {
  column {
    text "Count: {count}"
    button "Increment" {
      on_click: increment
    }
    button "Reset" {
      visible: count > 0
      on_click: reset
    }
  }
}

actions {
  increment {
    count: count + 1
  }
  reset {
    count: 0
  }
}
`

// TestLoadSource_Counter tests the boot pipeline end to end.
func TestLoadSource_Counter(t *testing.T) {
	var initial []view.Patch
	r, err := LoadSource(counterSrc, WithPatchSink(func(p []view.Patch) {
		initial = append(initial, p...)
	}))
	require.NoError(t, err)

	v, ok := r.Lookup("count")
	require.True(t, ok)
	assert.Equal(t, ast.Int(0), v)

	assert.Equal(t, "Count: 0", r.Tree().Find("0.0").Text)
	assert.False(t, r.Tree().Find("0.2").Visible, "reset hidden at count 0")
	assert.NotEmpty(t, initial, "first build emits the full layout")
}

// TestExecute_Increment tests a full action round trip.
func TestExecute_Increment(t *testing.T) {
	r, err := LoadSource(counterSrc)
	require.NoError(t, err)

	patches, err := r.Execute("increment")
	require.NoError(t, err)

	v, _ := r.Lookup("count")
	assert.Equal(t, ast.Int(1), v)
	assert.Equal(t, "Count: 1", r.Tree().Find("0.0").Text)
	assert.True(t, r.Tree().Find("0.2").Visible, "reset appears once count > 0")

	// One text change plus one visibility change.
	require.Len(t, patches, 2)
}

// TestExecute_UnknownAction tests dispatch of an undeclared name.
func TestExecute_UnknownAction(t *testing.T) {
	r, err := LoadSource(counterSrc)
	require.NoError(t, err)

	_, err = r.Execute("no_such_action")
	require.Error(t, err)
	assert.True(t, state.IsUnknownAction(err))

	// State untouched after the failed dispatch.
	v, _ := r.Lookup("count")
	assert.Equal(t, ast.Int(0), v)
}

// TestExecute_FailedActionRecovers tests that a failed action leaves the
// runtime usable.
func TestExecute_FailedActionRecovers(t *testing.T) {
	src := `
@app "Bad"
@version 1

state {
  n: 1
}

view {
  text "{n}"
}

actions {
  explode {
    n: n / 0
  }
  bump {
    n: n + 1
  }
}
`
	r, err := LoadSource(src)
	require.NoError(t, err)

	_, err = r.Execute("explode")
	require.Error(t, err)
	assert.True(t, state.IsActionError(err))

	v, _ := r.Lookup("n")
	assert.Equal(t, ast.Int(1), v)
	assert.Equal(t, "1", r.Tree().Find("0").Text)

	patches, err := r.Execute("bump")
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.Equal(t, "2", r.Tree().Find("0").Text)
}

// TestClick tests click routing to on_click handlers.
func TestClick(t *testing.T) {
	r, err := LoadSource(counterSrc)
	require.NoError(t, err)

	patches, err := r.Click("0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, patches)

	v, _ := r.Lookup("count")
	assert.Equal(t, ast.Int(1), v)
}

// TestClick_Ignored tests the silently-ignored click cases: unknown refs,
// nodes without handlers, and invisible nodes.
func TestClick_Ignored(t *testing.T) {
	r, err := LoadSource(counterSrc)
	require.NoError(t, err)

	// Unknown node.
	patches, err := r.Click("0.9")
	require.NoError(t, err)
	assert.Empty(t, patches)

	// Text node without a handler.
	patches, err = r.Click("0.0")
	require.NoError(t, err)
	assert.Empty(t, patches)

	// Invisible reset button at count 0.
	patches, err = r.Click("0.2")
	require.NoError(t, err)
	assert.Empty(t, patches)

	v, _ := r.Lookup("count")
	assert.Equal(t, ast.Int(0), v)
}

const formSrc = `
@app "Form"
@version 1

state {
  draft: ""
}

view {
  column {
    input {
      bind: draft
    }
    text "You typed: {draft}"
  }
}
`

// TestTextInput tests bind write-through and the resulting patches.
func TestTextInput(t *testing.T) {
	r, err := LoadSource(formSrc)
	require.NoError(t, err)

	patches, err := r.TextInput("0.0", "hi")
	require.NoError(t, err)

	v, _ := r.Lookup("draft")
	assert.Equal(t, ast.Str("hi"), v)
	assert.Equal(t, "You typed: hi", r.Tree().Find("0.1").Text)
	assert.Equal(t, ast.Str("hi"), r.Tree().Find("0.0").Props["value"])
	assert.Len(t, patches, 2)

	// Text accumulates.
	_, err = r.TextInput("0.0", "!")
	require.NoError(t, err)
	v, _ = r.Lookup("draft")
	assert.Equal(t, ast.Str("hi!"), v)
}

// TestBackspace tests rune-wise deletion and the empty no-op.
func TestBackspace(t *testing.T) {
	r, err := LoadSource(formSrc)
	require.NoError(t, err)

	_, err = r.TextInput("0.0", "héllo")
	require.NoError(t, err)

	_, err = r.Backspace("0.0")
	require.NoError(t, err)
	v, _ := r.Lookup("draft")
	assert.Equal(t, ast.Str("héll"), v)

	for i := 0; i < 10; i++ {
		_, err = r.Backspace("0.0")
		require.NoError(t, err)
	}
	v, _ = r.Lookup("draft")
	assert.Equal(t, ast.Str(""), v, "backspace on empty is a no-op")
}

// TestTextInput_Unbound tests that input events for nodes without bind
// are ignored.
func TestTextInput_Unbound(t *testing.T) {
	r, err := LoadSource(counterSrc)
	require.NoError(t, err)

	patches, err := r.TextInput("0.0", "x")
	require.NoError(t, err)
	assert.Empty(t, patches)
}

// TestLoad_ValidationErrors tests the load-time reference checks.
func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "undeclared variable in template",
			src: `
@app "X"
@version 1
state { n: 0 }
view { text "{missing}" }
`,
		},
		{
			name: "undeclared variable in visible",
			src: `
@app "X"
@version 1
state { n: 0 }
view { text "hi" { visible: ghost } }
`,
		},
		{
			name: "unknown on_click action",
			src: `
@app "X"
@version 1
state { n: 0 }
view { button "go" { on_click: missing_action } }
`,
		},
		{
			name: "bind to undeclared variable",
			src: `
@app "X"
@version 1
state { n: 0 }
view { input { bind: ghost } }
`,
		},
		{
			name: "mutation targets undeclared variable",
			src: `
@app "X"
@version 1
state { n: 0 }
view { text "hi" }
actions { go { ghost: 1 } }
`,
		},
		{
			name: "undeclared variable in mutation expression",
			src: `
@app "X"
@version 1
state { n: 0 }
view { text "hi" }
actions { go { n: ghost + 1 } }
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSource(tt.src)
			require.Error(t, err)

			var le *parser.LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, parser.ErrCodeUnresolvedIdentifier, le.Code)
		})
	}
}

// TestLoad_FromFile tests the guarded file path.
func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counter.prism")
	require.NoError(t, os.WriteFile(path, []byte(counterSrc), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Counter", r.Document().AppName)
}

// TestLoad_RejectedFile tests that guard failures surface at load.
func TestLoad_RejectedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counter.txt")
	require.NoError(t, os.WriteFile(path, []byte(counterSrc), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, sandbox.ErrCodePathRejected, sandbox.SandboxErrorCodeOf(err))
}

// TestRun_EventLoop tests the dispatch path through the run loop,
// including log-and-continue on action failure.
func TestRun_EventLoop(t *testing.T) {
	r, err := LoadSource(counterSrc,
		WithTokenGenerator(NewFixedGenerator("evt-1", "evt-2", "evt-3", "evt-4")))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.True(t, r.DispatchClick("0.1"))
	assert.True(t, r.DispatchAction("no_such_action")) // logged, loop continues
	assert.True(t, r.DispatchAction("increment"))

	// Wait for the queue to drain before stopping.
	require.Eventually(t, func() bool {
		v, _ := r.Lookup("count")
		return v == ast.Int(2)
	}, 2*time.Second, 5*time.Millisecond)

	r.Stop()
	require.NoError(t, <-done)

	assert.False(t, r.DispatchClick("0.1"), "dispatch after stop must fail")
}

// TestRun_ContextCancel tests that cancellation stops the loop.
func TestRun_ContextCancel(t *testing.T) {
	r, err := LoadSource(counterSrc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

// TestLoadSource_MemoryBudget tests that an oversized program is
// rejected before it runs.
func TestLoadSource_MemoryBudget(t *testing.T) {
	g, err := sandbox.NewGuard("", sandbox.WithMaxMemory(16))
	require.NoError(t, err)

	_, err = LoadSource(counterSrc, WithGuard(g))
	require.Error(t, err)
	assert.Equal(t, sandbox.ErrCodeMemoryExceeded, sandbox.SandboxErrorCodeOf(err))
}
