package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/matchwise/matchwise/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

const analysisColumns = `id, job_description_id, status, match_score, verdict,
       summary, strengths, weaknesses, recommendations, missing_keywords,
       ai_model, error_message, created_at, updated_at`

// Create inserts the eagerly-created pending row.
func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO resume_analyses
  (id, job_description_id, status, missing_keywords, created_at, updated_at)
VALUES (?,?,?,?,?,?);
`
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.JobDescriptionID, string(domain.StatusPending), jsonStrings(a.MissingKeywords),
		created, created,
	)
	return err
}

func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `SELECT ` + analysisColumns + ` FROM resume_analyses WHERE id=? LIMIT 1;`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *AnalysisRepository) GetByJobDescription(ctx context.Context, jobDescriptionID string) (*domain.Analysis, error) {
	const q = `SELECT ` + analysisColumns + ` FROM resume_analyses WHERE job_description_id=? LIMIT 1;`
	return r.scanOne(r.db.QueryRowContext(ctx, q, jobDescriptionID))
}

// TryTransitionProcessing is the trigger layer's check-and-set: exactly
// one of two concurrent triggers sees rows-affected 1.
func (r *AnalysisRepository) TryTransitionProcessing(ctx context.Context, id domain.AnalysisID) (bool, error) {
	const q = `
UPDATE resume_analyses
SET status = ?, error_message = '', match_score = 0, verdict = '',
    summary = '', strengths = '', weaknesses = '', recommendations = '',
    missing_keywords = '[]', updated_at = ?
WHERE id = ? AND status <> ?;
`
	res, err := r.db.ExecContext(ctx, q,
		string(domain.StatusProcessing), time.Now(), id, string(domain.StatusProcessing))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Complete writes the whole result and the status in one statement so a
// concurrent reader never sees a half-written row.
func (r *AnalysisRepository) Complete(ctx context.Context, id domain.AnalysisID, result domain.Result) error {
	const q = `
UPDATE resume_analyses
SET status = ?, match_score = ?, verdict = ?, summary = ?, strengths = ?,
    weaknesses = ?, recommendations = ?, missing_keywords = ?, ai_model = ?,
    error_message = '', updated_at = ?
WHERE id = ?;
`
	_, err := r.db.ExecContext(ctx, q,
		string(domain.StatusCompleted), result.MatchScore, string(result.Verdict),
		result.Summary, result.Strengths, result.Weaknesses, result.Recommendations,
		jsonStrings(result.MissingKeywords), result.AIModel, time.Now(), id,
	)
	return err
}

func (r *AnalysisRepository) Fail(ctx context.Context, id domain.AnalysisID, reason string) error {
	const q = `
UPDATE resume_analyses
SET status = ?, error_message = ?, updated_at = ?
WHERE id = ?;
`
	_, err := r.db.ExecContext(ctx, q, string(domain.StatusFailed), reason, time.Now(), id)
	return err
}

func (r *AnalysisRepository) scanOne(row *sql.Row) (*domain.Analysis, error) {
	var a domain.Analysis
	var verdict, keywords string
	err := row.Scan(
		&a.ID, &a.JobDescriptionID, &a.Status, &a.MatchScore, &verdict,
		&a.Summary, &a.Strengths, &a.Weaknesses, &a.Recommendations, &keywords,
		&a.AIModel, &a.ErrorMessage, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Verdict = domain.Verdict(verdict)
	a.MissingKeywords = parseJSONStrings(keywords)
	return &a, nil
}
