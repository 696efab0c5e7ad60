package version

import (
	"testing"

	"github.com/fatih/color"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	orig := Version
	Version = v
	t.Cleanup(func() { Version = orig })
}

func TestColoredWithoutTerminal(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	tests := []string{"0.1.0-dev", "1.2.3", "1.0.0-beta.1", "1.2.3-rc.1+build.123", "nightly"}
	for _, v := range tests {
		withVersion(t, v)
		if got := Colored(); got != v {
			t.Errorf("Colored() = %q, want %q", got, v)
		}
	}
}

func TestColoredHighlightsComponents(t *testing.T) {
	orig := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = orig })

	withVersion(t, "1.2.3-dev")
	got := Colored()
	if got == "1.2.3-dev" {
		t.Fatalf("expected escape codes in %q", got)
	}
	want := majorColor.Sprint("1") + "." + minorColor.Sprint("2") + "." + patchColor.Sprint("3") + "-dev"
	if got != want {
		t.Fatalf("Colored() = %q, want %q", got, want)
	}
}

func TestCurrent(t *testing.T) {
	withVersion(t, "2.0.0")
	origCommit := GitCommit
	GitCommit = "abc123"
	t.Cleanup(func() { GitCommit = origCommit })

	info := Current()
	if info.Version != "2.0.0" || info.GitCommit != "abc123" {
		t.Fatalf("Current() = %+v", info)
	}
}
