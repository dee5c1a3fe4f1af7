package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalysis "github.com/matchwise/matchwise/internal/application/analysis"
	appjobdesc "github.com/matchwise/matchwise/internal/application/jobdesc"
	apprewrite "github.com/matchwise/matchwise/internal/application/rewrite"
	domanalysis "github.com/matchwise/matchwise/internal/domain/analysis"
	domjobdesc "github.com/matchwise/matchwise/internal/domain/jobdesc"
	domrewrite "github.com/matchwise/matchwise/internal/domain/rewrite"
	"github.com/matchwise/matchwise/internal/infra/queue"
	"github.com/matchwise/matchwise/internal/middleware"
)

// maxMultipartMemory caps the in-memory portion of resume uploads.
const maxMultipartMemory = 10 << 20

// Enqueuer is the task queue the trigger endpoints hand runs to.
type Enqueuer interface {
	Enqueue(name string, task queue.Task)
}

type Router struct {
	jobdescSvc  *appjobdesc.Service
	analysisSvc *appanalysis.Service
	rewriteSvc  *apprewrite.Service
	queue       Enqueuer
	logger      *zap.Logger
}

type Options struct {
	APIKeys            []string
	RateLimitCapacity  int
	RateLimitRefill    float64
	HealthCheckers     map[string]middleware.HealthChecker
}

func NewRouter(jobdescSvc *appjobdesc.Service, analysisSvc *appanalysis.Service, rewriteSvc *apprewrite.Service, queue Enqueuer, logger *zap.Logger, opts Options) http.Handler {
	r := &Router{
		jobdescSvc:  jobdescSvc,
		analysisSvc: analysisSvc,
		rewriteSvc:  rewriteSvc,
		queue:       queue,
		logger:      logger,
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.Logging(logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	mux.Use(middleware.RateLimit(opts.RateLimitCapacity, opts.RateLimitRefill))
	mux.Use(middleware.MaxBodyBytes(domjobdesc.MaxResumeBytes + 1<<20))

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/job-descriptions", r.wrap(r.handleCreateJobDescription))
		rt.Get("/job-descriptions/{id}", r.wrap(r.handleGetJobDescription))
		rt.Post("/job-descriptions/{id}/analyze", r.wrap(r.handleTriggerAnalysis))
		rt.Get("/job-descriptions/{id}/analysis", r.wrap(r.handleGetAnalysis))
		rt.Post("/analyses/{id}/rewrites", r.wrap(r.handleCreateRewrite))
		rt.Post("/rewrites/{id}/regenerate", r.wrap(r.handleRegenerate))
		rt.Get("/rewrites/{id}", r.wrap(r.handleGetRewrite))
		rt.Get("/rewrites/{id}/pdf", r.wrap(r.handleDownloadPDF))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps domain sentinels onto HTTP status codes so handlers only
// ever return errors.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, domjobdesc.ErrNotFound),
			errors.Is(err, domanalysis.ErrNotFound),
			errors.Is(err, domrewrite.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, domanalysis.ErrAlreadyProcessing),
			errors.Is(err, domrewrite.ErrAlreadyProcessing):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domrewrite.ErrAnalysisNotCompleted):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domrewrite.ErrNoInputs),
			errors.Is(err, domjobdesc.ErrTitleRequired),
			errors.Is(err, domjobdesc.ErrDescriptionTooShort),
			errors.Is(err, domjobdesc.ErrResumeType),
			errors.Is(err, domjobdesc.ErrResumeTooLarge),
			errors.Is(err, domjobdesc.ErrResumeCorrupt):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			var be badRequestError
			if errors.As(err, &be) {
				writeError(w, http.StatusBadRequest, be.Error())
				return
			}
			r.logger.Error("handler error",
				zap.String("path", req.URL.Path), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
	}
}

type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return badRequestError{msg: fmt.Sprintf(format, args...)}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/job-descriptions
// multipart/form-data: title, description, resume (file, optional)
func (r *Router) handleCreateJobDescription(w http.ResponseWriter, req *http.Request) error {
	if err := req.ParseMultipartForm(maxMultipartMemory); err != nil {
		return badRequest("invalid multipart form: %v", err)
	}

	var upload *appjobdesc.ResumeUpload
	file, header, err := req.FormFile("resume")
	if err == nil {
		defer file.Close()
		data, rerr := io.ReadAll(file)
		if rerr != nil {
			return fmt.Errorf("reading resume upload: %w", rerr)
		}
		upload = &appjobdesc.ResumeUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		return badRequest("invalid resume upload: %v", err)
	}

	jd, a, err := r.jobdescSvc.Create(req.Context(),
		middleware.SanitizeString(req.FormValue("title")),
		req.FormValue("description"),
		upload,
	)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, map[string]any{
		"job_description": jd,
		"analysis":        a,
	})
}

// GET /v1/job-descriptions/{id}
func (r *Router) handleGetJobDescription(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	jd, err := r.jobdescSvc.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, jd)
}

// POST /v1/job-descriptions/{id}/analyze
// Check-and-set happens here; the queue only ever sees rows already in
// processing.
func (r *Router) handleTriggerAnalysis(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")

	analysisID, err := r.analysisSvc.Trigger(req.Context(), id)
	if err != nil {
		return err
	}

	middleware.IncrementAnalyses()
	r.queue.Enqueue("analysis:"+string(analysisID), func(ctx context.Context) error {
		return r.analysisSvc.Run(ctx, analysisID)
	})

	return writeJSON(w, http.StatusAccepted, map[string]any{
		"analysis_id": analysisID,
		"status":      domanalysis.StatusProcessing,
		"queued_at":   time.Now(),
	})
}

// GET /v1/job-descriptions/{id}/analysis
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	a, err := r.analysisSvc.Analyses.GetByJobDescription(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// POST /v1/analyses/{id}/rewrites
func (r *Router) handleCreateRewrite(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")

	var body struct {
		AcceptedSuggestions []string            `json:"accepted_suggestions"`
		AdditionalKeywords  []string            `json:"additional_keywords"`
		AdditionalProjects  []domrewrite.Project `json:"additional_projects"`
		SpecialInstructions string              `json:"special_instructions"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid request body: %v", err)
	}

	rw, err := r.rewriteSvc.Create(req.Context(), apprewrite.CreateCommand{
		AnalysisID:          id,
		AcceptedSuggestions: body.AcceptedSuggestions,
		AdditionalKeywords:  body.AdditionalKeywords,
		AdditionalProjects:  body.AdditionalProjects,
		SpecialInstructions: body.SpecialInstructions,
	})
	if err != nil {
		return err
	}

	middleware.IncrementRewrites()
	r.queue.Enqueue("rewrite:"+string(rw.ID), func(ctx context.Context) error {
		return r.rewriteSvc.Run(ctx, rw.ID)
	})

	return writeJSON(w, http.StatusAccepted, rw)
}

// POST /v1/rewrites/{id}/regenerate
func (r *Router) handleRegenerate(w http.ResponseWriter, req *http.Request) error {
	id := domrewrite.RewriteID(chi.URLParam(req, "id"))

	if err := r.rewriteSvc.Retrigger(req.Context(), id); err != nil {
		return err
	}

	middleware.IncrementRewrites()
	r.queue.Enqueue("rewrite:"+string(id), func(ctx context.Context) error {
		return r.rewriteSvc.Run(ctx, id)
	})

	return writeJSON(w, http.StatusAccepted, map[string]any{
		"rewrite_id": id,
		"status":     domrewrite.StatusProcessing,
		"queued_at":  time.Now(),
	})
}

// GET /v1/rewrites/{id}
func (r *Router) handleGetRewrite(w http.ResponseWriter, req *http.Request) error {
	id := domrewrite.RewriteID(chi.URLParam(req, "id"))
	rw, err := r.rewriteSvc.Rewrites.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rw)
}

// GET /v1/rewrites/{id}/pdf
// Streams the compiled artifact with an attachment disposition.
func (r *Router) handleDownloadPDF(w http.ResponseWriter, req *http.Request) error {
	id := domrewrite.RewriteID(chi.URLParam(req, "id"))
	rw, err := r.rewriteSvc.Rewrites.Get(req.Context(), id)
	if err != nil {
		return err
	}
	if !rw.HasPDF() {
		writeError(w, http.StatusNotFound, "no pdf attached to this rewrite")
		return nil
	}

	data, err := r.rewriteSvc.Files.Get(req.Context(), rw.PDFKey)
	if err != nil {
		return fmt.Errorf("fetching pdf %s: %w", rw.PDFKey, err)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rw.PDFFilename))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(data)
	return err
}
