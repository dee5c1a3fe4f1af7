package rewrite

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ID tipe untuk Rewrite
type RewriteID string

// Status enum
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ErrNoInputs when a rewrite is created with nothing to change
var ErrNoInputs = errors.New("please provide at least one suggestion, keyword, project, or instruction")

// Project value object: an extra project the user wants added to the resume.
type Project struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Technologies string `json:"technologies,omitempty"`
	Duration     string `json:"duration,omitempty"`
}

// TokenUsage accounting for one generation call.
type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCost    float64 `json:"estimated_cost"`
}

// Aggregate Root: Rewrite
// Many per completed analysis; a user may regenerate repeatedly.
type Rewrite struct {
	ID                  RewriteID `json:"id"`
	AnalysisID          string    `json:"analysis_id"`
	Status              Status    `json:"status"`
	AcceptedSuggestions []string  `json:"accepted_suggestions"`
	AdditionalKeywords  []string  `json:"additional_keywords"`
	AdditionalProjects  []Project `json:"additional_projects"`
	SpecialInstructions string    `json:"special_instructions,omitempty"`
	LatexCode           string    `json:"latex_code,omitempty"`
	ImprovementsSummary string    `json:"improvements_summary,omitempty"`
	ErrorMessage        string    `json:"error_message,omitempty"`
	PDFKey              string    `json:"-"`
	PDFFilename         string    `json:"pdf_filename,omitempty"`
	AIModel             string    `json:"ai_model,omitempty"`
	Usage               TokenUsage `json:"usage"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// HasPDF reports whether a compiled PDF artifact is attached.
func (r *Rewrite) HasPDF() bool {
	return r.PDFKey != ""
}

// Normalize trims and dedupes the user-selected edits. Runs before
// Validate so "  Kubernetes " and "Kubernetes" count once.
func (r *Rewrite) Normalize() {
	r.AcceptedSuggestions = normalizeStrings(r.AcceptedSuggestions)
	r.AdditionalKeywords = normalizeStrings(r.AdditionalKeywords)
	r.AdditionalProjects = normalizeProjects(r.AdditionalProjects)
	r.SpecialInstructions = strings.TrimSpace(r.SpecialInstructions)
}

// Validate enforces creation invariants. A rewrite with zero requested
// changes is meaningless and rejected.
func (r *Rewrite) Validate() error {
	if len(r.AcceptedSuggestions) == 0 &&
		len(r.AdditionalKeywords) == 0 &&
		len(r.AdditionalProjects) == 0 &&
		r.SpecialInstructions == "" {
		return ErrNoInputs
	}
	for i, p := range r.AdditionalProjects {
		if p.Name == "" {
			return fmt.Errorf("project %d must include a name", i+1)
		}
		if p.Description == "" {
			return fmt.Errorf("project %d must include a description", i+1)
		}
	}
	return nil
}

func normalizeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func normalizeProjects(in []Project) []Project {
	out := make([]Project, 0, len(in))
	for _, p := range in {
		p.Name = strings.TrimSpace(p.Name)
		p.Description = strings.TrimSpace(p.Description)
		p.Technologies = strings.TrimSpace(p.Technologies)
		p.Duration = strings.TrimSpace(p.Duration)
		if p.Name == "" && p.Description == "" && p.Technologies == "" && p.Duration == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
