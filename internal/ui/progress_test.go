package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"splittable/internal/buildpipeline"
)

func TestApplyEventAddsRowsAndTracksStages(t *testing.T) {
	m := NewProgressModel("build", []string{"src/a.js", "src/b.js"}, buildpipeline.PlanStages, nil).(*progressModel)

	m.applyEvent(buildpipeline.Event{Stage: buildpipeline.StageDiscover, Status: buildpipeline.StatusWorking})
	if m.stageLabel != "resolving" {
		t.Fatalf("stageLabel = %q", m.stageLabel)
	}
	m.applyEvent(buildpipeline.Event{Item: "_base", Stage: buildpipeline.StagePartition, Status: buildpipeline.StatusDone})
	if len(m.items) != 3 || m.items[2].name != "_base" || m.items[2].status != "done" {
		t.Fatalf("items = %+v", m.items)
	}
	m.applyEvent(buildpipeline.Event{Item: "src/a.js", Stage: buildpipeline.StageEmit, Status: buildpipeline.StatusWorking})
	if m.items[0].status != "emitting" {
		t.Fatalf("status = %q", m.items[0].status)
	}

	view := m.View()
	for _, want := range []string{"build (resolving)", "src/a.js", "_base"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestStageFraction(t *testing.T) {
	stages := buildpipeline.PlanStages
	if got := stageFraction(stages, buildpipeline.StageDiscover, false); got != 0 {
		t.Fatalf("discover working = %v", got)
	}
	if got := stageFraction(stages, buildpipeline.StageEmit, true); got != 1 {
		t.Fatalf("emit done = %v", got)
	}
	if got := stageFraction(stages, buildpipeline.StageCompile, true); got != 0 {
		t.Fatalf("unknown stage = %v", got)
	}
}

func TestFailureIsShown(t *testing.T) {
	m := NewProgressModel("build", []string{"a.js"}, buildpipeline.AllStages, nil).(*progressModel)
	m.applyEvent(buildpipeline.Event{Item: "a.js", Stage: buildpipeline.StageOrder, Status: buildpipeline.StatusError})
	m.done = true
	if !strings.Contains(m.View(), "failed: build") {
		t.Fatalf("view:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"src/very/long/path.js", 10, "src/ver..."},
		{"a.js", 10, "a.js"},
		{"exactly10!", 10, "exactly10!"},
		{"abcdef", 3, "abc"},
		{"abcdef", 0, "abcdef"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
		if tt.width > 0 && runewidth.StringWidth(truncate(tt.in, tt.width)) > tt.width {
			t.Fatalf("truncate(%q, %d) exceeds the width", tt.in, tt.width)
		}
	}
}

func TestCtrlCQuits(t *testing.T) {
	model := NewProgressModel("build", []string{"a.js"}, buildpipeline.AllStages, nil)
	next, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("ctrl+c returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("ctrl+c did not quit")
	}
	if !Canceled(next) {
		t.Fatalf("model not marked canceled")
	}
	other, _ := NewProgressModel("build", nil, buildpipeline.AllStages, nil).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if Canceled(other) {
		t.Fatalf("plain key canceled the build")
	}
}
