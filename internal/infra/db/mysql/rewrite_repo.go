package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	domain "github.com/matchwise/matchwise/internal/domain/rewrite"
)

type RewriteRepository struct {
	db *sql.DB
}

func NewRewriteRepository(db *sql.DB) *RewriteRepository {
	return &RewriteRepository{db: db}
}

const rewriteColumns = `id, analysis_id, status, accepted_suggestions, additional_keywords,
       additional_projects, special_instructions, latex_code, improvements_summary,
       error_message, pdf_key, pdf_filename, ai_model,
       prompt_tokens, completion_tokens, total_tokens, estimated_cost,
       created_at, updated_at`

func (r *RewriteRepository) Create(ctx context.Context, rw *domain.Rewrite) error {
	const q = `
INSERT INTO resume_rewrites
  (id, analysis_id, status, accepted_suggestions, additional_keywords,
   additional_projects, special_instructions, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?);
`
	created := rw.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		rw.ID, rw.AnalysisID, string(domain.StatusPending),
		jsonStrings(rw.AcceptedSuggestions), jsonStrings(rw.AdditionalKeywords),
		jsonValue(rw.AdditionalProjects), rw.SpecialInstructions,
		created, created,
	)
	return err
}

func (r *RewriteRepository) Get(ctx context.Context, id domain.RewriteID) (*domain.Rewrite, error) {
	const q = `SELECT ` + rewriteColumns + ` FROM resume_rewrites WHERE id=? LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, id)

	var rw domain.Rewrite
	var suggestions, keywords, projects string
	err := row.Scan(
		&rw.ID, &rw.AnalysisID, &rw.Status, &suggestions, &keywords,
		&projects, &rw.SpecialInstructions, &rw.LatexCode, &rw.ImprovementsSummary,
		&rw.ErrorMessage, &rw.PDFKey, &rw.PDFFilename, &rw.AIModel,
		&rw.Usage.PromptTokens, &rw.Usage.CompletionTokens, &rw.Usage.TotalTokens, &rw.Usage.EstimatedCost,
		&rw.CreatedAt, &rw.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rw.AcceptedSuggestions = parseJSONStrings(suggestions)
	rw.AdditionalKeywords = parseJSONStrings(keywords)
	if err := json.Unmarshal([]byte(projects), &rw.AdditionalProjects); err != nil {
		rw.AdditionalProjects = nil
	}
	return &rw, nil
}

// TryTransitionProcessing: the regenerate check-and-set. Refuses when a
// run is already in flight.
func (r *RewriteRepository) TryTransitionProcessing(ctx context.Context, id domain.RewriteID) (bool, error) {
	const q = `
UPDATE resume_rewrites
SET status = ?, error_message = '', updated_at = ?
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

// MarkProcessing: unconditional transition at the top of a run.
func (r *RewriteRepository) MarkProcessing(ctx context.Context, id domain.RewriteID) error {
	const q = `
UPDATE resume_rewrites
SET status = ?, error_message = '', updated_at = ?
WHERE id = ?;
`
	_, err := r.db.ExecContext(ctx, q, string(domain.StatusProcessing), time.Now(), id)
	return err
}

// SaveGenerated keeps the row in processing: only the payload columns
// change, so an interrupted run is visibly incomplete.
func (r *RewriteRepository) SaveGenerated(ctx context.Context, id domain.RewriteID, latexCode, improvementsSummary, aiModel string, usage domain.TokenUsage) error {
	const q = `
UPDATE resume_rewrites
SET latex_code = ?, improvements_summary = ?, ai_model = ?,
    prompt_tokens = ?, completion_tokens = ?, total_tokens = ?, estimated_cost = ?,
    updated_at = ?
WHERE id = ?;
`
	_, err := r.db.ExecContext(ctx, q,
		latexCode, improvementsSummary, aiModel,
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, usage.EstimatedCost,
		time.Now(), id,
	)
	return err
}

func (r *RewriteRepository) AttachPDF(ctx context.Context, id domain.RewriteID, key, filename string) error {
	const q = `
UPDATE resume_rewrites
SET pdf_key = ?, pdf_filename = ?, updated_at = ?
WHERE id = ?;
`
	_, err := r.db.ExecContext(ctx, q, key, filename, time.Now(), id)
	return err
}

func (r *RewriteRepository) Complete(ctx context.Context, id domain.RewriteID) error {
	const q = `
UPDATE resume_rewrites
SET status = ?, updated_at = ?
WHERE id = ?;
`
	_, err := r.db.ExecContext(ctx, q, string(domain.StatusCompleted), time.Now(), id)
	return err
}

func (r *RewriteRepository) Fail(ctx context.Context, id domain.RewriteID, reason string) error {
	const q = `
UPDATE resume_rewrites
SET status = ?, error_message = ?, updated_at = ?
WHERE id = ?;
`
	_, err := r.db.ExecContext(ctx, q, string(domain.StatusFailed), reason, time.Now(), id)
	return err
}
