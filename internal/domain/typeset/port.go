package typeset

import "context"

// Result of one compile attempt. A compiler timeout or non-2xx status is
// a legitimate failure carried in Err, never a Go error: the orchestrator
// persists the reason without crashing the background task.
type Result struct {
	Success bool
	PDF     []byte
	Err     string
}

// Compiler port: turns LaTeX source into PDF bytes via an external
// typesetting service. id is used for temp-object naming and logging.
type Compiler interface {
	Compile(ctx context.Context, latexCode, id string) Result
}
