// Package engine implements the module registry and event dispatcher.
//
// ARCHITECTURE:
//
// Registry:
// Modules are registered as Descriptors (handle, dependencies, constructor).
// Resolve() orders them so every dependency precedes its dependents. Ties are
// broken by registration order, so the same registry always yields the same
// order. Missing handles and dependency cycles are setup errors.
//
// Build:
// Build() constructs modules in resolved order into an arena (a slice of
// instances plus a handle→index map). Each constructor receives a Context
// that can only reach the dependencies its descriptor declared. Init() runs
// right after construction, before any dependent is constructed.
//
// Dispatch:
// Execute() walks the event stream once. For every event, for every module in
// construction order, for every subscription in registration order: evaluate
// the filter, check required fields, invoke the handler synchronously. After
// the last event a single complete event is synthesised and dispatched the
// same way.
//
// CRITICAL PATTERNS:
//
// Fault isolation:
// A handler error or panic marks its module failed and stops its
// subscriptions. Modules that depend on it, directly or transitively, are
// marked degraded and stop too. Every other module keeps running. Log and
// continue, never abort the run.
//
// Determinism:
// No goroutines, no maps in iteration paths, no wall-clock reads that affect
// results. The same registry and stream always produce the same state.
package engine
