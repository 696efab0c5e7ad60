// Package trace records what a splittable run is doing: which stage is
// active, how long it took, and which module or bundle it was working on.
//
// Tracing is off unless requested:
//
//	splittable --trace=- --trace-level=detail src/main.js
//
// # Tracers
//
//   - Nop: used whenever tracing is disabled
//   - StreamTracer: writes every event as it happens
//   - RingTracer: keeps the most recent events for a dump on failure
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// A level admits every scope at or above its granularity:
//
//   - LevelPhase: ScopeDriver and ScopeStage (discover, graph, order, ...)
//   - LevelDetail: adds ScopeModule (per-bundle and per-file events)
//   - LevelDebug: everything
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, "order", 0)
//	defer span.End("")
package trace
