package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/metricq/internal/ir"
)

// Snapshot renders a result for golden comparison: one canonical JSON line
// per case, in case order.
func Snapshot(r *Result) ([]byte, error) {
	var buf bytes.Buffer
	for i, c := range r.Cases {
		issues := make(ir.Array, len(c.Issues))
		for j, issue := range c.Issues {
			issues[j] = ir.Object{"input": ir.String(issue.Input), "message": ir.String(issue.Message)}
		}
		obj := ir.Object{
			"case":   ir.String(c.Name),
			"seq":    ir.Int(c.Seq),
			"status": ir.String(c.Status),
			"issues": issues,
		}
		if c.Spec != nil {
			obj["spec"] = c.Spec
		}
		line, err := ir.MarshalCanonical(obj)
		if err != nil {
			return nil, fmt.Errorf("snapshot case %s: %w", c.Name, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

// GoldenPath returns where the golden file of a scenario file lives: a
// golden directory next to it, named after the file.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// WriteGolden stores the snapshot of r at path.
func WriteGolden(r *Result, path string) error {
	data, err := Snapshot(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the snapshot of r equals the file at path.
// A missing file is an error.
func CompareGolden(r *Result, path string) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := Snapshot(r)
	if err != nil {
		return false, err
	}
	return bytes.Equal(bytes.TrimRight(want, "\n"), got), nil
}

// AssertGolden compares the snapshot of r with testdata/golden/<name>.golden
// of the calling package. Run the test with -update to rewrite it.
func AssertGolden(t *testing.T, name string, r *Result) {
	t.Helper()

	data, err := Snapshot(r)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
