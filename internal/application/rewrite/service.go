package rewrite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchwise/matchwise/internal/application"
	"github.com/matchwise/matchwise/internal/domain/ai"
	"github.com/matchwise/matchwise/internal/domain/analysis"
	"github.com/matchwise/matchwise/internal/domain/artifact"
	"github.com/matchwise/matchwise/internal/domain/document"
	"github.com/matchwise/matchwise/internal/domain/jobdesc"
	domain "github.com/matchwise/matchwise/internal/domain/rewrite"
	"github.com/matchwise/matchwise/internal/domain/typeset"
)

const minResumeTextLength = 100

// Sanitizer is the deterministic LaTeX repair pass applied before any
// compilation attempt.
type Sanitizer interface {
	Sanitize(code string) string
	Validate(code string) []string
}

// Service drives generation -> sanitization -> compilation -> attachment
// for one Rewrite.
type Service struct {
	Rewrites        domain.Repository
	Analyses        analysis.Repository
	JobDescriptions jobdesc.Repository
	Files           artifact.Store
	Extractor       document.Extractor
	Generator       ai.LatexGenerator
	Sanitizer       Sanitizer
	Compiler        typeset.Compiler
	Clock           application.Clock
	Logger          *zap.Logger
}

// CreateCommand is the request-layer payload for a new rewrite.
type CreateCommand struct {
	AnalysisID          string
	AcceptedSuggestions []string
	AdditionalKeywords  []string
	AdditionalProjects  []domain.Project
	SpecialInstructions string
}

// Create validates and persists a pending rewrite. A completed analysis
// is a precondition; a rewrite with zero requested changes is rejected
// before it ever reaches pending.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*domain.Rewrite, error) {
	a, err := s.Analyses.Get(ctx, analysis.AnalysisID(cmd.AnalysisID))
	if err != nil {
		return nil, err
	}
	if a.Status != analysis.StatusCompleted {
		return nil, domain.ErrAnalysisNotCompleted
	}

	rw := &domain.Rewrite{
		ID:                  domain.RewriteID(uuid.New().String()),
		AnalysisID:          cmd.AnalysisID,
		Status:              domain.StatusPending,
		AcceptedSuggestions: cmd.AcceptedSuggestions,
		AdditionalKeywords:  cmd.AdditionalKeywords,
		AdditionalProjects:  cmd.AdditionalProjects,
		SpecialInstructions: cmd.SpecialInstructions,
		CreatedAt:           s.Clock.Now(),
	}
	rw.Normalize()
	if err := rw.Validate(); err != nil {
		return nil, err
	}
	if err := s.Rewrites.Create(ctx, rw); err != nil {
		return nil, fmt.Errorf("creating rewrite: %w", err)
	}
	return rw, nil
}

// Retrigger is the check-and-set used by the regenerate endpoint. A
// second trigger while a run is in flight gets ErrAlreadyProcessing.
func (s *Service) Retrigger(ctx context.Context, id domain.RewriteID) error {
	if _, err := s.Rewrites.Get(ctx, id); err != nil {
		return err
	}
	ok, err := s.Rewrites.TryTransitionProcessing(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAlreadyProcessing
	}
	return nil
}

// Run is the background task body. Unexpected errors anywhere in the
// pipeline mark the rewrite failed and are then returned, so the task
// queue's retry cap governs re-attempts; business failures are recorded
// once and return nil.
func (s *Service) Run(ctx context.Context, id domain.RewriteID) (err error) {
	rw, err := s.Rewrites.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		s.Logger.Warn("rewrite no longer exists, skipping run", zap.String("rewrite_id", string(id)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading rewrite %s: %w", id, err)
	}

	if err := s.Rewrites.MarkProcessing(ctx, id); err != nil {
		return fmt.Errorf("marking rewrite processing: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rewrite run panic: %v", r)
		}
		if err != nil {
			// The visible status must never stay silently stale: record
			// failed before letting the queue see the error.
			if ferr := s.Rewrites.Fail(ctx, id, "unexpected error during rewrite"); ferr != nil {
				s.Logger.Error("could not record rewrite failure",
					zap.String("rewrite_id", string(id)), zap.Error(ferr))
			}
			s.Logger.Error("rewrite run crashed", zap.String("rewrite_id", string(id)), zap.Error(err))
		}
	}()

	a, jd, loadErr := s.loadContext(ctx, rw)
	if loadErr != nil {
		return loadErr
	}
	if a == nil || jd == nil {
		return s.failBusiness(ctx, id, "associated analysis no longer exists")
	}

	resumeText, failReason, err := s.originalResumeText(ctx, jd)
	if err != nil {
		return err
	}
	if failReason != "" {
		return s.failBusiness(ctx, id, failReason)
	}

	out := s.Generator.GenerateLatex(ctx, generateInput(rw, a, jd, resumeText))
	if out.Err != "" {
		return s.failBusiness(ctx, id, out.Err)
	}

	// Intermediate save: the row keeps processing status so a crash
	// between here and completion is visibly incomplete.
	usage := domain.TokenUsage{
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
		TotalTokens:      out.Usage.TotalTokens,
		EstimatedCost:    out.Usage.EstimatedCost,
	}
	if err := s.Rewrites.SaveGenerated(ctx, id, out.LatexCode, improvementsSummary(rw), out.Model, usage); err != nil {
		return fmt.Errorf("saving generated latex: %w", err)
	}

	s.attachPDFIfPossible(ctx, rw, jd, out.LatexCode)

	if err := s.Rewrites.Complete(ctx, id); err != nil {
		return fmt.Errorf("completing rewrite: %w", err)
	}
	s.Logger.Info("rewrite completed", zap.String("rewrite_id", string(id)))
	return nil
}

// attachPDFIfPossible sanitizes, compiles and stores the PDF. A rewrite
// with LaTeX but no PDF is a usable partial success, so every failure in
// here is logged and swallowed.
func (s *Service) attachPDFIfPossible(ctx context.Context, rw *domain.Rewrite, jd *jobdesc.JobDescription, latexCode string) {
	sanitized := s.Sanitizer.Sanitize(latexCode)
	if problems := s.Sanitizer.Validate(sanitized); len(problems) > 0 {
		// Compilation is still attempted; the compiler is the final judge.
		s.Logger.Warn("sanitized latex has residual problems",
			zap.String("rewrite_id", string(rw.ID)), zap.Strings("problems", problems))
	}

	res := s.Compiler.Compile(ctx, sanitized, string(rw.ID))
	if !res.Success {
		s.Logger.Warn("pdf compilation skipped",
			zap.String("rewrite_id", string(rw.ID)), zap.String("reason", res.Err))
		return
	}

	filename := pdfFilename(jd.ResumeFilename, s.Clock.Now())
	key := fmt.Sprintf("rewrites/%s/%s", rw.ID, filename)
	if err := s.Files.Put(ctx, key, res.PDF, "application/pdf"); err != nil {
		s.Logger.Warn("storing compiled pdf failed",
			zap.String("rewrite_id", string(rw.ID)), zap.Error(err))
		return
	}
	if err := s.Rewrites.AttachPDF(ctx, rw.ID, key, filename); err != nil {
		s.Logger.Warn("recording pdf attachment failed",
			zap.String("rewrite_id", string(rw.ID)), zap.Error(err))
		return
	}
	s.Logger.Info("pdf attached",
		zap.String("rewrite_id", string(rw.ID)), zap.String("filename", filename))
}

func (s *Service) loadContext(ctx context.Context, rw *domain.Rewrite) (*analysis.Analysis, *jobdesc.JobDescription, error) {
	a, err := s.Analyses.Get(ctx, analysis.AnalysisID(rw.AnalysisID))
	if errors.Is(err, analysis.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading analysis %s: %w", rw.AnalysisID, err)
	}
	jd, err := s.JobDescriptions.Get(ctx, a.JobDescriptionID)
	if errors.Is(err, jobdesc.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading job description %s: %w", a.JobDescriptionID, err)
	}
	return a, jd, nil
}

// originalResumeText downloads and extracts the original resume. The
// second return is a terminal business reason, the third a retryable
// infrastructure error.
func (s *Service) originalResumeText(ctx context.Context, jd *jobdesc.JobDescription) (string, string, error) {
	if !jd.ResumeAttached() {
		return "", "no resume attached", nil
	}
	data, err := s.Files.Get(ctx, jd.ResumeKey)
	if err != nil {
		return "", "", fmt.Errorf("downloading resume %s: %w", jd.ResumeKey, err)
	}
	res := s.Extractor.Extract(bytes.NewReader(data), jd.ResumeContentType)
	if !res.OK() {
		return "", "resume text extraction failed: " + res.Message(), nil
	}
	text := strings.TrimSpace(res.Text)
	if len(text) < minResumeTextLength {
		return "", "invalid resume text", nil
	}
	if len(strings.TrimSpace(jd.Description)) < jobdesc.MinDescriptionLength {
		return "", "job description too short", nil
	}
	return text, "", nil
}

func (s *Service) failBusiness(ctx context.Context, id domain.RewriteID, reason string) error {
	if err := s.Rewrites.Fail(ctx, id, reason); err != nil {
		return fmt.Errorf("recording rewrite failure: %w", err)
	}
	s.Logger.Info("rewrite failed",
		zap.String("rewrite_id", string(id)), zap.String("reason", reason))
	return nil
}

func generateInput(rw *domain.Rewrite, a *analysis.Analysis, jd *jobdesc.JobDescription, resumeText string) ai.GenerateInput {
	projects := make([]ai.ProjectInput, 0, len(rw.AdditionalProjects))
	for _, p := range rw.AdditionalProjects {
		projects = append(projects, ai.ProjectInput{
			Name:         p.Name,
			Description:  p.Description,
			Technologies: p.Technologies,
			Duration:     p.Duration,
		})
	}
	return ai.GenerateInput{
		ResumeText:     resumeText,
		JobDescription: jd.Description,
		Findings: ai.Findings{
			MatchScore:      a.MatchScore,
			Verdict:         string(a.Verdict),
			MissingKeywords: a.MissingKeywords,
		},
		AcceptedSuggestions: rw.AcceptedSuggestions,
		AdditionalKeywords:  rw.AdditionalKeywords,
		AdditionalProjects:  projects,
		SpecialInstructions: rw.SpecialInstructions,
	}
}

func improvementsSummary(rw *domain.Rewrite) string {
	parts := []string{
		fmt.Sprintf("Accepted suggestions: %d", len(rw.AcceptedSuggestions)),
		fmt.Sprintf("Added keywords: %d", len(rw.AdditionalKeywords)),
		fmt.Sprintf("Added projects: %d", len(rw.AdditionalProjects)),
	}
	if rw.SpecialInstructions != "" {
		parts = append(parts, "Custom instructions applied")
	}
	return strings.Join(parts, ". ")
}

// pdfFilename derives the artifact name from the original resume's base
// name plus the current date.
func pdfFilename(resumeFilename string, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(resumeFilename), filepath.Ext(resumeFilename))
	if base == "" || base == "." {
		base = "resume"
	}
	return fmt.Sprintf("%s_rewrite_%s.pdf", base, now.Format("20060102"))
}
