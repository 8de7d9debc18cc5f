package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if Resolved() == "" {
		t.Error("Resolved should never be empty")
	}
}

func TestString(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })
	Version = "v1.2.3"

	s := String()
	if !strings.HasPrefix(s, "restockwatch v1.2.3 ") {
		t.Errorf("unexpected version line %q", s)
	}
	if !strings.Contains(s, "commit "+GitCommit) {
		t.Errorf("missing commit in %q", s)
	}
}
