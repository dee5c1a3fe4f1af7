package jobdesc

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchwise/matchwise/internal/application"
	"github.com/matchwise/matchwise/internal/domain/analysis"
	"github.com/matchwise/matchwise/internal/domain/artifact"
	domain "github.com/matchwise/matchwise/internal/domain/jobdesc"
)

// ResumeUpload is the raw multipart file from the request layer.
type ResumeUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service implements the collaborator-owned creation flow: persist the
// job description, store its resume, and eagerly create the pending
// analysis row the pipeline will later own.
type Service struct {
	JobDescriptions domain.Repository
	Analyses        analysis.Repository
	Files           artifact.Store
	Clock           application.Clock
	Logger          *zap.Logger
}

// Create validates inputs, stores the resume artifact and creates the
// job description together with its pending analysis.
func (s *Service) Create(ctx context.Context, title, description string, resume *ResumeUpload) (*domain.JobDescription, *analysis.Analysis, error) {
	now := s.Clock.Now()
	jd := &domain.JobDescription{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
	}
	if err := jd.Validate(); err != nil {
		return nil, nil, err
	}

	if resume != nil {
		if err := validateResume(resume); err != nil {
			return nil, nil, err
		}
		key := fmt.Sprintf("resumes/%s/%s", jd.ID, filepath.Base(resume.Filename))
		if err := s.Files.Put(ctx, key, resume.Data, resume.ContentType); err != nil {
			return nil, nil, fmt.Errorf("storing resume: %w", err)
		}
		jd.ResumeKey = key
		jd.ResumeFilename = filepath.Base(resume.Filename)
		jd.ResumeContentType = resume.ContentType
	}

	if err := s.JobDescriptions.Create(ctx, jd); err != nil {
		return nil, nil, fmt.Errorf("creating job description: %w", err)
	}

	a := &analysis.Analysis{
		ID:               analysis.AnalysisID(uuid.New().String()),
		JobDescriptionID: jd.ID,
		Status:           analysis.StatusPending,
		CreatedAt:        now,
	}
	if err := s.Analyses.Create(ctx, a); err != nil {
		return nil, nil, fmt.Errorf("creating analysis: %w", err)
	}

	s.Logger.Info("job description created",
		zap.String("job_description_id", jd.ID),
		zap.Bool("resume_attached", jd.ResumeAttached()))
	return jd, a, nil
}

// Get returns one job description.
func (s *Service) Get(ctx context.Context, id string) (*domain.JobDescription, error) {
	return s.JobDescriptions.Get(ctx, id)
}

func validateResume(r *ResumeUpload) error {
	if !domain.AllowedResumeType(r.ContentType) {
		return domain.ErrResumeType
	}
	if len(r.Data) > domain.MaxResumeBytes {
		return domain.ErrResumeTooLarge
	}
	head := r.Data
	if len(head) > 4 {
		head = head[:4]
	}
	if !domain.ValidResumeSignature(head) {
		return domain.ErrResumeCorrupt
	}
	return nil
}
