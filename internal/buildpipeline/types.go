package buildpipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageDiscover runs the resolver (or reads its cached output).
	StageDiscover Stage = "discover"
	// StageGraph canonicalizes records into a closed module graph.
	StageGraph Stage = "graph"
	// StageOrder computes the load order.
	StageOrder Stage = "order"
	// StageOwnership propagates entry ownership.
	StageOwnership Stage = "ownership"
	// StagePartition assigns modules to bundles.
	StagePartition Stage = "partition"
	// StageEmit produces compiler directives.
	StageEmit Stage = "emit"
	// StageCompile runs the external compiler.
	StageCompile Stage = "compile"
)

// PlanStages lists the stages of Plan in execution order.
var PlanStages = []Stage{StageDiscover, StageGraph, StageOrder, StageOwnership, StagePartition, StageEmit}

// AllStages lists every stage of Build in execution order.
var AllStages = append(append([]Stage(nil), PlanStages...), StageCompile)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the item is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the item is being processed.
	StatusWorking Status = "working"
	// StatusDone indicates the item is done.
	StatusDone Status = "done"
	// StatusError indicates the item encountered an error.
	StatusError Status = "error"
)

// Event reports progress for one item (an entry or a bundle), or for the
// whole pipeline when Item is empty.
type Event struct {
	Item    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
