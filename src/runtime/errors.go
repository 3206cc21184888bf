package runtime

import "errors"

// Error taxonomy for the dispatch core. Errors are never unwound through the
// dispatch loop itself; they are only returned from Init/Launch entry points.
var (
	// ErrConfiguration covers thread-count/block-dim/core-count validation
	// failures discovered during Init. No worker is ever signaled once this
	// is returned.
	ErrConfiguration = errors.New("taskcore/runtime: configuration error")

	// ErrNullArgument covers a nil Runtime or nil kernel arguments at launch
	// entry.
	ErrNullArgument = errors.New("taskcore/runtime: null argument")

	// ErrTransport covers a zero register base for a physical core id. It is
	// logged and the affected core is skipped for the current dispatch
	// iteration; it never aborts the launch.
	ErrTransport = errors.New("taskcore/runtime: transport error")

	// ErrEmptyReadySet is returned by graph construction when no task has a
	// zero initial fan-in: no progress would ever be possible.
	ErrEmptyReadySet = errors.New("taskcore/runtime: empty initial ready set")

	// ErrGraphCycle is returned by the graph builder when the supplied task
	// specs do not form a DAG. The core itself never re-checks this; it is a
	// builder-side precondition.
	ErrGraphCycle = errors.New("taskcore/runtime: graph is not acyclic")

	// ErrDanglingDependency is returned by the graph builder when a fan-out
	// or dependency edge references an unknown task id.
	ErrDanglingDependency = errors.New("taskcore/runtime: dangling task dependency")

	// ErrTooManyTasks is returned by the graph builder when the task count
	// exceeds RuntimeMaxTasks.
	ErrTooManyTasks = errors.New("taskcore/runtime: task count exceeds RuntimeMaxTasks")

	// ErrAlreadyLaunching is returned when Launch is called concurrently on
	// the same Runtime handle; a Runtime serves one launch at a time.
	ErrAlreadyLaunching = errors.New("taskcore/runtime: runtime is already launching")
)
