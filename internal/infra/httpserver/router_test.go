package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matchwise/matchwise/internal/application"
	appanalysis "github.com/matchwise/matchwise/internal/application/analysis"
	appjobdesc "github.com/matchwise/matchwise/internal/application/jobdesc"
	apprewrite "github.com/matchwise/matchwise/internal/application/rewrite"
	"github.com/matchwise/matchwise/internal/domain/ai"
	domanalysis "github.com/matchwise/matchwise/internal/domain/analysis"
	"github.com/matchwise/matchwise/internal/domain/document"
	domjobdesc "github.com/matchwise/matchwise/internal/domain/jobdesc"
	domrewrite "github.com/matchwise/matchwise/internal/domain/rewrite"
	"github.com/matchwise/matchwise/internal/domain/typeset"
	"github.com/matchwise/matchwise/internal/infra/queue"
	"github.com/matchwise/matchwise/internal/middleware"
)

// syncQueue runs tasks inline so handlers' side effects are observable
// immediately.
type syncQueue struct{}

func (syncQueue) Enqueue(name string, task queue.Task) {
	_ = task(context.Background())
}

type analysisRepoMem struct {
	byID      map[domanalysis.AnalysisID]*domanalysis.Analysis
	byJobDesc map[string]*domanalysis.Analysis
}

func newAnalysisRepoMem() *analysisRepoMem {
	return &analysisRepoMem{
		byID:      make(map[domanalysis.AnalysisID]*domanalysis.Analysis),
		byJobDesc: make(map[string]*domanalysis.Analysis),
	}
}

func (m *analysisRepoMem) Create(ctx context.Context, a *domanalysis.Analysis) error {
	m.byID[a.ID] = a
	m.byJobDesc[a.JobDescriptionID] = a
	return nil
}

func (m *analysisRepoMem) Get(ctx context.Context, id domanalysis.AnalysisID) (*domanalysis.Analysis, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, domanalysis.ErrNotFound
	}
	return a, nil
}

func (m *analysisRepoMem) GetByJobDescription(ctx context.Context, jobDescriptionID string) (*domanalysis.Analysis, error) {
	a, ok := m.byJobDesc[jobDescriptionID]
	if !ok {
		return nil, domanalysis.ErrNotFound
	}
	return a, nil
}

func (m *analysisRepoMem) TryTransitionProcessing(ctx context.Context, id domanalysis.AnalysisID) (bool, error) {
	a, ok := m.byID[id]
	if !ok {
		return false, domanalysis.ErrNotFound
	}
	if a.Status == domanalysis.StatusProcessing {
		return false, nil
	}
	a.Status = domanalysis.StatusProcessing
	return true, nil
}

func (m *analysisRepoMem) Complete(ctx context.Context, id domanalysis.AnalysisID, result domanalysis.Result) error {
	a := m.byID[id]
	a.Status = domanalysis.StatusCompleted
	a.MatchScore = result.MatchScore
	a.Verdict = result.Verdict
	a.Summary = result.Summary
	a.Strengths = result.Strengths
	a.Weaknesses = result.Weaknesses
	a.Recommendations = result.Recommendations
	a.MissingKeywords = result.MissingKeywords
	a.AIModel = result.AIModel
	return nil
}

func (m *analysisRepoMem) Fail(ctx context.Context, id domanalysis.AnalysisID, reason string) error {
	a := m.byID[id]
	a.Status = domanalysis.StatusFailed
	a.ErrorMessage = reason
	return nil
}

type jobdescRepoMem struct {
	items map[string]*domjobdesc.JobDescription
}

func (m *jobdescRepoMem) Create(ctx context.Context, j *domjobdesc.JobDescription) error {
	m.items[j.ID] = j
	return nil
}

func (m *jobdescRepoMem) Get(ctx context.Context, id string) (*domjobdesc.JobDescription, error) {
	j, ok := m.items[id]
	if !ok {
		return nil, domjobdesc.ErrNotFound
	}
	return j, nil
}

type rewriteRepoMem struct {
	items map[domrewrite.RewriteID]*domrewrite.Rewrite
}

func (m *rewriteRepoMem) Create(ctx context.Context, rw *domrewrite.Rewrite) error {
	m.items[rw.ID] = rw
	return nil
}

func (m *rewriteRepoMem) Get(ctx context.Context, id domrewrite.RewriteID) (*domrewrite.Rewrite, error) {
	rw, ok := m.items[id]
	if !ok {
		return nil, domrewrite.ErrNotFound
	}
	return rw, nil
}

func (m *rewriteRepoMem) TryTransitionProcessing(ctx context.Context, id domrewrite.RewriteID) (bool, error) {
	rw, ok := m.items[id]
	if !ok {
		return false, domrewrite.ErrNotFound
	}
	if rw.Status == domrewrite.StatusProcessing {
		return false, nil
	}
	rw.Status = domrewrite.StatusProcessing
	return true, nil
}

func (m *rewriteRepoMem) MarkProcessing(ctx context.Context, id domrewrite.RewriteID) error {
	m.items[id].Status = domrewrite.StatusProcessing
	return nil
}

func (m *rewriteRepoMem) SaveGenerated(ctx context.Context, id domrewrite.RewriteID, latexCode, improvementsSummary, aiModel string, usage domrewrite.TokenUsage) error {
	rw := m.items[id]
	rw.LatexCode = latexCode
	rw.ImprovementsSummary = improvementsSummary
	rw.AIModel = aiModel
	rw.Usage = usage
	return nil
}

func (m *rewriteRepoMem) AttachPDF(ctx context.Context, id domrewrite.RewriteID, key, filename string) error {
	rw := m.items[id]
	rw.PDFKey = key
	rw.PDFFilename = filename
	return nil
}

func (m *rewriteRepoMem) Complete(ctx context.Context, id domrewrite.RewriteID) error {
	m.items[id].Status = domrewrite.StatusCompleted
	return nil
}

func (m *rewriteRepoMem) Fail(ctx context.Context, id domrewrite.RewriteID, reason string) error {
	rw := m.items[id]
	rw.Status = domrewrite.StatusFailed
	rw.ErrorMessage = reason
	return nil
}

type storeMem struct {
	data map[string][]byte
}

func (s *storeMem) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.data[key] = data
	return nil
}
func (s *storeMem) Get(ctx context.Context, key string) ([]byte, error) { return s.data[key], nil }
func (s *storeMem) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://example.com/" + key, nil
}
func (s *storeMem) Remove(ctx context.Context, key string) error {
	delete(s.data, key)
	return nil
}

type extractorMem struct{}

func (extractorMem) Extract(r io.Reader, contentType string) document.ExtractResult {
	return document.ExtractResult{Text: strings.Repeat("experienced engineer ", 20)}
}

type aiMem struct{}

func (aiMem) AnalyzeMatch(ctx context.Context, in ai.MatchInput) ai.MatchOutcome {
	return ai.MatchOutcome{Result: &ai.MatchResult{
		MatchScore:      80,
		Verdict:         "GOOD_MATCH",
		Summary:         "solid",
		Strengths:       "<ul><li>go</li></ul>",
		Weaknesses:      "<ul><li>k8s</li></ul>",
		Recommendations: "<ul><li>add projects</li></ul>",
		MissingKeywords: []string{"Kubernetes"},
		Model:           "gpt-4o",
	}}
}

func (aiMem) GenerateLatex(ctx context.Context, in ai.GenerateInput) ai.GenerateOutcome {
	return ai.GenerateOutcome{
		LatexCode: `\documentclass{article}\begin{document}x\end{document}`,
		Model:     "gpt-4o",
		Usage:     ai.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}
}

type sanitizerMem struct{}

func (sanitizerMem) Sanitize(code string) string  { return code }
func (sanitizerMem) Validate(code string) []string { return nil }

type compilerMem struct{}

func (compilerMem) Compile(ctx context.Context, latexCode, id string) typeset.Result {
	return typeset.Result{Success: true, PDF: []byte("%PDF compiled")}
}

func newTestHandler() (http.Handler, *storeMem) {
	analyses := newAnalysisRepoMem()
	jds := &jobdescRepoMem{items: make(map[string]*domjobdesc.JobDescription)}
	rewrites := &rewriteRepoMem{items: make(map[domrewrite.RewriteID]*domrewrite.Rewrite)}
	files := &storeMem{data: make(map[string][]byte)}
	logger := zap.NewNop()
	clock := application.SystemClock{}

	jobdescSvc := &appjobdesc.Service{
		JobDescriptions: jds, Analyses: analyses, Files: files, Clock: clock, Logger: logger,
	}
	analysisSvc := &appanalysis.Service{
		Analyses: analyses, JobDescriptions: jds, Files: files,
		Extractor: extractorMem{}, Analyzer: aiMem{}, Logger: logger,
	}
	rewriteSvc := &apprewrite.Service{
		Rewrites: rewrites, Analyses: analyses, JobDescriptions: jds, Files: files,
		Extractor: extractorMem{}, Generator: aiMem{}, Sanitizer: sanitizerMem{},
		Compiler: compilerMem{}, Clock: clock, Logger: logger,
	}

	h := NewRouter(jobdescSvc, analysisSvc, rewriteSvc, syncQueue{}, logger, Options{
		RateLimitCapacity: 1000,
		RateLimitRefill:   1000,
		HealthCheckers:    map[string]middleware.HealthChecker{},
	})
	return h, files
}

func multipartJobDescription(t *testing.T, withResume bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Backend Engineer"))
	require.NoError(t, w.WriteField("description", strings.Repeat("build services in go ", 5)))
	if withResume {
		part, err := w.CreatePart(map[string][]string{
			"Content-Disposition": {`form-data; name="resume"; filename="cv.pdf"`},
			"Content-Type":        {"application/pdf"},
		})
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.5 fake resume body"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func createJobDescription(t *testing.T, h http.Handler) (string, string) {
	t.Helper()
	body, contentType := multipartJobDescription(t, true)
	req := httptest.NewRequest(http.MethodPost, "/v1/job-descriptions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		JobDescription domjobdesc.JobDescription `json:"job_description"`
		Analysis       domanalysis.Analysis      `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.JobDescription.ID, string(resp.Analysis.ID)
}

func TestCreateJobDescriptionEndpoint(t *testing.T) {
	h, files := newTestHandler()

	jdID, analysisID := createJobDescription(t, h)
	assert.NotEmpty(t, jdID)
	assert.NotEmpty(t, analysisID)
	assert.Len(t, files.data, 1)
}

func TestCreateJobDescriptionValidationError(t *testing.T) {
	h, _ := newTestHandler()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Backend Engineer"))
	require.NoError(t, w.WriteField("description", "too short"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/job-descriptions", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAnalysisFlow(t *testing.T) {
	h, _ := newTestHandler()
	jdID, _ := createJobDescription(t, h)

	// Trigger runs synchronously through the inline queue.
	req := httptest.NewRequest(http.MethodPost, "/v1/job-descriptions/"+jdID+"/analyze", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/v1/job-descriptions/"+jdID+"/analysis", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var a domanalysis.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, domanalysis.StatusCompleted, a.Status)
	assert.Equal(t, 80, a.MatchScore)
	assert.Equal(t, domanalysis.VerdictGoodMatch, a.Verdict)
}

func TestTriggerUnknownJobDescription(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/job-descriptions/nope/analyze", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRewriteFlow(t *testing.T) {
	h, files := newTestHandler()
	jdID, analysisID := createJobDescription(t, h)

	// Complete the analysis first.
	req := httptest.NewRequest(http.MethodPost, "/v1/job-descriptions/"+jdID+"/analyze", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := `{"accepted_suggestions":["Add metrics"],"additional_keywords":["Go"]}`
	req = httptest.NewRequest(http.MethodPost, "/v1/analyses/"+analysisID+"/rewrites", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var rw domrewrite.Rewrite
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rw))

	// The inline queue already ran the pipeline end to end.
	req = httptest.NewRequest(http.MethodGet, "/v1/rewrites/"+string(rw.ID), nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domrewrite.Rewrite
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domrewrite.StatusCompleted, got.Status)
	assert.Contains(t, got.LatexCode, `\documentclass`)
	assert.NotEmpty(t, got.PDFFilename)

	// And the PDF streams back.
	req = httptest.NewRequest(http.MethodGet, "/v1/rewrites/"+string(rw.ID)+"/pdf", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF compiled", rec.Body.String())

	// Resume upload plus compiled pdf in the store.
	assert.Len(t, files.data, 2)
}

func TestRewriteRequiresCompletedAnalysis(t *testing.T) {
	h, _ := newTestHandler()
	_, analysisID := createJobDescription(t, h)

	body := `{"additional_keywords":["Go"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses/"+analysisID+"/rewrites", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRewriteRejectsEmptyInputs(t *testing.T) {
	h, _ := newTestHandler()
	jdID, analysisID := createJobDescription(t, h)

	req := httptest.NewRequest(http.MethodPost, "/v1/job-descriptions/"+jdID+"/analyze", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/analyses/"+analysisID+"/rewrites", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	analyses := newAnalysisRepoMem()
	jds := &jobdescRepoMem{items: make(map[string]*domjobdesc.JobDescription)}
	logger := zap.NewNop()
	jobdescSvc := &appjobdesc.Service{
		JobDescriptions: jds, Analyses: analyses,
		Files: &storeMem{data: map[string][]byte{}},
		Clock: application.SystemClock{}, Logger: logger,
	}
	h := NewRouter(jobdescSvc, &appanalysis.Service{Analyses: analyses, JobDescriptions: jds, Logger: logger},
		&apprewrite.Service{Logger: logger}, syncQueue{}, logger, Options{
			APIKeys:           []string{"secret-key"},
			RateLimitCapacity: 1000,
			RateLimitRefill:   1000,
		})

	req := httptest.NewRequest(http.MethodGet, "/v1/job-descriptions/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/job-descriptions/x", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
