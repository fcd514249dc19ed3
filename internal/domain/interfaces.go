package domain

import "context"

// Advisor is the single capability every advisory agent implements:
// produce one Opinion for one instrument from a context snapshot.
// Implementations must be safe for concurrent use; the consensus engine
// invokes the whole panel in parallel.
//
// An advisor that has no applicable signal (for example a sector
// specialist looking at an out-of-domain instrument) must return
// MAINTAIN with confidence 0.0 rather than an error, so one
// inapplicable agent never blocks a cycle.
type Advisor interface {
	Name() string
	Analyze(ctx context.Context, snapshot *ContextSnapshot) (Opinion, error)
}

// SnapshotProvider supplies the pre-fetched context bundle per
// instrument. The core treats the bundle as opaque read-only input.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, instrument string) (*ContextSnapshot, error)
}

// ExecutionSink receives the single instruction the core emits.
// Acknowledgments arrive asynchronously and are recorded, not reasoned
// about further.
type ExecutionSink interface {
	Submit(ctx context.Context, instruction ExecutionInstruction) error
}
