package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/matchwise/matchwise/internal/domain/jobdesc"
)

type JobDescriptionRepository struct {
	db *sql.DB
}

func NewJobDescriptionRepository(db *sql.DB) *JobDescriptionRepository {
	return &JobDescriptionRepository{db: db}
}

func (r *JobDescriptionRepository) Create(ctx context.Context, j *domain.JobDescription) error {
	const q = `
INSERT INTO job_descriptions
  (id, title, description, resume_key, resume_filename, resume_content_type, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);
`
	created := j.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		j.ID, j.Title, j.Description,
		j.ResumeKey, j.ResumeFilename, j.ResumeContentType,
		created, created,
	)
	return err
}

func (r *JobDescriptionRepository) Get(ctx context.Context, id string) (*domain.JobDescription, error) {
	const q = `
SELECT id, title, description, resume_key, resume_filename, resume_content_type, created_at, updated_at
FROM job_descriptions
WHERE id=$1 LIMIT 1;
`
	var j domain.JobDescription
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&j.ID, &j.Title, &j.Description,
		&j.ResumeKey, &j.ResumeFilename, &j.ResumeContentType,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}
