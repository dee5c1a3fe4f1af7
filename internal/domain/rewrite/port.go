package rewrite

import (
	"context"
	"errors"
)

// ErrNotFound when the rewrite row does not exist
var ErrNotFound = errors.New("rewrite not found")

// ErrAlreadyProcessing when a regenerate trigger races an in-flight run
var ErrAlreadyProcessing = errors.New("rewrite already in progress")

// ErrAnalysisNotCompleted when a rewrite is requested before its analysis finished
var ErrAnalysisNotCompleted = errors.New("analysis is not completed yet")

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, r *Rewrite) error
	Get(ctx context.Context, id RewriteID) (*Rewrite, error)

	// TryTransitionProcessing is the trigger-layer check-and-set: any
	// non-processing status moves to processing with error cleared.
	// Returns false when the row was already processing.
	TryTransitionProcessing(ctx context.Context, id RewriteID) (bool, error)

	// MarkProcessing is the unconditional transition done at the top of
	// an orchestrator run (pending rows from Create land here). Clears a
	// prior error message.
	MarkProcessing(ctx context.Context, id RewriteID) error

	// SaveGenerated persists the generated LaTeX and accounting fields
	// while the row stays processing, so a crash before completion is
	// visibly incomplete.
	SaveGenerated(ctx context.Context, id RewriteID, latexCode, improvementsSummary, aiModel string, usage TokenUsage) error

	// AttachPDF records the stored PDF artifact location.
	AttachPDF(ctx context.Context, id RewriteID, key, filename string) error

	Complete(ctx context.Context, id RewriteID) error
	Fail(ctx context.Context, id RewriteID, reason string) error
}
