package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matchwise/matchwise/internal/domain/ai"
	domain "github.com/matchwise/matchwise/internal/domain/analysis"
	"github.com/matchwise/matchwise/internal/domain/artifact"
	"github.com/matchwise/matchwise/internal/domain/document"
	"github.com/matchwise/matchwise/internal/domain/jobdesc"
)

// MinResumeTextLength: extractions shorter than this are useless to the
// model and fail the run.
const MinResumeTextLength = 100

// Service drives extraction -> analysis -> persistence for one Analysis.
// It owns the entity's state machine after the trigger layer hands it
// over in processing.
type Service struct {
	Analyses        domain.Repository
	JobDescriptions jobdesc.Repository
	Files           artifact.Store
	Extractor       document.Extractor
	Analyzer        ai.Analyzer
	Logger          *zap.Logger
}

// Trigger is the check-and-set entry point used by the request layer. It
// moves the job description's analysis into processing and returns its
// id; a second trigger while a run is in flight gets ErrAlreadyProcessing
// before anything is enqueued.
func (s *Service) Trigger(ctx context.Context, jobDescriptionID string) (domain.AnalysisID, error) {
	a, err := s.Analyses.GetByJobDescription(ctx, jobDescriptionID)
	if err != nil {
		return "", err
	}
	ok, err := s.Analyses.TryTransitionProcessing(ctx, a.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrAlreadyProcessing
	}
	return a.ID, nil
}

// Run is the background task body. It returns an error only for
// unexpected infrastructure problems, which the task queue retries;
// business failures are persisted as the failed status and return nil.
func (s *Service) Run(ctx context.Context, id domain.AnalysisID) error {
	a, err := s.Analyses.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		s.Logger.Warn("analysis no longer exists, skipping run", zap.String("analysis_id", string(id)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading analysis %s: %w", id, err)
	}

	jd, err := s.JobDescriptions.Get(ctx, a.JobDescriptionID)
	if errors.Is(err, jobdesc.ErrNotFound) {
		s.Logger.Warn("job description no longer exists, skipping run",
			zap.String("analysis_id", string(id)), zap.String("job_description_id", a.JobDescriptionID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading job description %s: %w", a.JobDescriptionID, err)
	}

	if !jd.ResumeAttached() {
		return s.fail(ctx, id, "no resume attached")
	}

	data, err := s.Files.Get(ctx, jd.ResumeKey)
	if err != nil {
		return fmt.Errorf("downloading resume %s: %w", jd.ResumeKey, err)
	}

	res := s.Extractor.Extract(bytes.NewReader(data), jd.ResumeContentType)
	if !res.OK() {
		s.Logger.Info("extraction failed",
			zap.String("analysis_id", string(id)),
			zap.String("kind", string(res.Failure)),
			zap.String("detail", res.Detail))
		return s.fail(ctx, id, "resume text extraction failed: "+res.Message())
	}
	text := strings.TrimSpace(res.Text)
	if len(text) < MinResumeTextLength {
		return s.fail(ctx, id, fmt.Sprintf(
			"resume text extraction produced only %d characters (minimum %d)",
			len(text), MinResumeTextLength))
	}

	out := s.Analyzer.AnalyzeMatch(ctx, ai.MatchInput{
		JobDescription: jd.Description,
		ResumeText:     text,
	})
	if out.Err != "" {
		return s.fail(ctx, id, out.Err)
	}

	r := out.Result
	verdict := domain.Verdict(r.Verdict)
	if !verdict.Valid() {
		// Coherence between score and verdict is enforced here, at
		// persistence time, not in the client.
		verdict = domain.VerdictForScore(r.MatchScore)
	}

	result := domain.Result{
		MatchScore:      r.MatchScore,
		Verdict:         verdict,
		Summary:         r.Summary,
		Strengths:       r.Strengths,
		Weaknesses:      r.Weaknesses,
		Recommendations: r.Recommendations,
		MissingKeywords: r.MissingKeywords,
		AIModel:         r.Model,
	}
	if err := s.Analyses.Complete(ctx, id, result); err != nil {
		return fmt.Errorf("persisting analysis result: %w", err)
	}

	s.Logger.Info("analysis completed",
		zap.String("analysis_id", string(id)),
		zap.Int("match_score", r.MatchScore),
		zap.String("verdict", string(verdict)))
	return nil
}

// fail records a terminal business outcome. Only a failure to record it
// is an error worth retrying.
func (s *Service) fail(ctx context.Context, id domain.AnalysisID, reason string) error {
	if err := s.Analyses.Fail(ctx, id, reason); err != nil {
		return fmt.Errorf("recording analysis failure: %w", err)
	}
	s.Logger.Info("analysis failed",
		zap.String("analysis_id", string(id)), zap.String("reason", reason))
	return nil
}
