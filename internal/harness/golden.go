package harness

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/prismlang/prism/internal/view"
)

// TraceSnapshot captures the complete patch trace of a scenario run.
// Serialized compactly for deterministic golden comparison.
type TraceSnapshot struct {
	Scenario string       `json:"scenario"`
	Program  string       `json:"program"`
	Load     []view.Patch `json:"load"`
	Trace    []TraceEvent `json:"trace"`
}

// RunWithGolden executes a scenario, verifies its assertions, and
// compares the full patch trace against a golden file at
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	if err := Verify(result, scenario); err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}

	snapshot := TraceSnapshot{
		Scenario: scenario.Name,
		Program:  filepath.Base(scenario.Program),
		Load:     result.Load,
		Trace:    result.Trace,
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("marshal trace snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
}
