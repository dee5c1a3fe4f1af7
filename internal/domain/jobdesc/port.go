package jobdesc

import (
	"context"
	"errors"
)

// ErrNotFound when the job description row does not exist
var ErrNotFound = errors.New("job description not found")

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, j *JobDescription) error
	Get(ctx context.Context, id string) (*JobDescription, error)
}
