package analysis

import (
	"context"
	"errors"
)

// ErrNotFound when the analysis row does not exist
var ErrNotFound = errors.New("analysis not found")

// ErrAlreadyProcessing when a trigger races an in-flight run
var ErrAlreadyProcessing = errors.New("analysis already in progress")

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	GetByJobDescription(ctx context.Context, jobDescriptionID string) (*Analysis, error)

	// TryTransitionProcessing is the check-and-set used by the trigger
	// layer: it moves any non-processing status to processing and clears
	// prior error/result fields. Returns false when the row was already
	// processing.
	TryTransitionProcessing(ctx context.Context, id AnalysisID) (bool, error)

	// Complete persists the full result and the completed status in one
	// atomic update.
	Complete(ctx context.Context, id AnalysisID, res Result) error

	// Fail records a short user-facing reason and the failed status.
	Fail(ctx context.Context, id AnalysisID, reason string) error
}
