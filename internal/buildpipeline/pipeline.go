// Package buildpipeline runs the bundle planning stages in order and,
// for a full build, hands the result to the compiler.
package buildpipeline

import (
	"context"
	"fmt"
	"time"

	"splittable/internal/bundle"
	"splittable/internal/compiler"
	"splittable/internal/directive"
	"splittable/internal/discovery"
	"splittable/internal/graph"
	"splittable/internal/trace"
)

// Request configures one planning or build run.
type Request struct {
	Entries  []string // entry paths as given by the user
	Root     string   // project root; module ids are relative to it
	Source   discovery.Source
	Emit     directive.Options
	Compiler *compiler.Runner // Build only
	Progress ProgressSink
}

// PlanResult captures everything computed before the compiler runs.
type PlanResult struct {
	Graph      *graph.Graph
	Ownership  bundle.Ownership
	Bundles    *bundle.Set
	Directives []directive.Directive
	Timings    Timings
}

// BuildResult is a PlanResult plus the compiler's output.
type BuildResult struct {
	PlanResult
	Output string // compiler stdout and stderr
}

type run struct {
	tr      trace.Tracer
	parent  uint64
	sink    ProgressSink
	items   []string
	timings *Timings
}

// stage runs fn as one pipeline stage: traced, timed and reported.
func (r *run) stage(ctx context.Context, stage Stage, fn func() (string, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	span := trace.Begin(r.tr, trace.ScopeStage, string(stage), r.parent)
	emitStage(r.sink, r.items, stage, StatusWorking, nil, 0)
	start := time.Now()
	detail, err := fn()
	dur := time.Since(start)
	r.timings.Set(stage, dur)
	if err != nil {
		span.End("error: " + err.Error())
		emitStage(r.sink, r.items, stage, StatusError, err, dur)
		return err
	}
	span.End(detail)
	emitStage(r.sink, r.items, stage, StatusDone, nil, dur)
	return nil
}

// Plan runs discovery through directive emission. Nothing is written to
// disk except the discovery cache. On error the result is always empty.
func Plan(ctx context.Context, req *Request) (PlanResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return PlanResult{}, fmt.Errorf("missing plan request")
	}
	if len(req.Entries) == 0 {
		return PlanResult{}, &UsageError{Msg: "no entry modules given"}
	}
	if req.Source == nil {
		return PlanResult{}, fmt.Errorf("missing discovery source")
	}

	tr := trace.FromContext(ctx)
	root := trace.Begin(tr, trace.ScopeDriver, "plan", trace.ParentSpan(ctx))
	defer root.End("")
	var res PlanResult
	r := &run{
		tr:      tr,
		parent:  root.ID(),
		sink:    req.Progress,
		items:   DisplayNames(req.Entries, req.Root),
		timings: &res.Timings,
	}
	emitQueued(r.sink, r.items)
	if err := plan(ctx, r, req, &res); err != nil {
		return PlanResult{}, err
	}
	return res, nil
}

func plan(ctx context.Context, r *run, req *Request, res *PlanResult) error {
	var records []discovery.Record
	err := r.stage(ctx, StageDiscover, func() (string, error) {
		var err error
		records, err = req.Source.Discover(ctx, req.Entries)
		if err != nil {
			return "", fmt.Errorf("discover: %w", err)
		}
		return fmt.Sprintf("%d records", len(records)), nil
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, StageGraph, func() (string, error) {
		selected, err := graph.SelectEntries(req.Root, records, req.Entries)
		if err != nil {
			return "", fmt.Errorf("select entries: %w", err)
		}
		g, err := graph.Build(req.Root, selected)
		if err != nil {
			return "", fmt.Errorf("build graph: %w", err)
		}
		res.Graph = g
		return fmt.Sprintf("%d modules, %d entries", g.Len(), len(g.Entries)), nil
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, StageOrder, func() (string, error) {
		if err := res.Graph.Sort(); err != nil {
			return "", fmt.Errorf("order modules: %w", err)
		}
		return "", nil
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, StageOwnership, func() (string, error) {
		own, err := bundle.Propagate(res.Graph)
		if err != nil {
			return "", fmt.Errorf("propagate ownership: %w", err)
		}
		res.Ownership = own
		return "", nil
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, StagePartition, func() (string, error) {
		set, err := bundle.Partition(res.Graph, res.Ownership)
		if err != nil {
			return "", fmt.Errorf("partition: %w", err)
		}
		res.Bundles = set
		for _, name := range set.Names() {
			trace.Point(r.tr, trace.ScopeModule, "bundle:"+name, fmt.Sprintf("%d modules", len(set.Bundles[name].Modules)))
		}
		return fmt.Sprintf("%d bundles", set.Len()), nil
	})
	if err != nil {
		return err
	}
	if base := res.Bundles.Base(); base != nil {
		// the shared bundle gets its own progress row from here on
		r.items = append([]string{bundle.BaseName}, r.items...)
		emitStage(r.sink, []string{bundle.BaseName}, StagePartition, StatusDone, nil, res.Timings.Duration(StagePartition))
	}

	return r.stage(ctx, StageEmit, func() (string, error) {
		ds, err := directive.Emit(res.Bundles, res.Graph.Boundaries, req.Emit)
		if err != nil {
			return "", fmt.Errorf("emit directives: %w", err)
		}
		res.Directives = ds
		return fmt.Sprintf("%d directives", len(ds)), nil
	})
}

// Build plans and then runs the compiler over the directives. On error the
// result holds nothing but the compiler output, when the compiler ran.
func Build(ctx context.Context, req *Request) (BuildResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return BuildResult{}, fmt.Errorf("missing build request")
	}
	runner := req.Compiler
	if runner == nil {
		runner = &compiler.Runner{Dir: req.Root}
	}
	// fail before discovery when the compiler cannot run at all
	if err := runner.EnsureRuntime(); err != nil {
		return BuildResult{}, err
	}
	planned, err := Plan(ctx, req)
	if err != nil {
		return BuildResult{}, err
	}

	res := BuildResult{PlanResult: planned}
	r := &run{
		tr:      trace.FromContext(ctx),
		parent:  trace.ParentSpan(ctx),
		sink:    req.Progress,
		items:   DisplayNames(req.Entries, req.Root),
		timings: &res.Timings,
	}
	if planned.Bundles.Base() != nil {
		r.items = append([]string{bundle.BaseName}, r.items...)
	}
	err = r.stage(ctx, StageCompile, func() (string, error) {
		out, err := runner.Run(ctx, planned.Directives)
		res.Output = out
		return "", err
	})
	if err != nil {
		return BuildResult{Output: res.Output}, err
	}
	return res, nil
}
