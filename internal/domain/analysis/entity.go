package analysis

import (
	"time"
)

// ID tipe untuk Analysis
type AnalysisID string

// Status enum
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Verdict enum
type Verdict string

const (
	VerdictStrongMatch  Verdict = "STRONG_MATCH"
	VerdictGoodMatch    Verdict = "GOOD_MATCH"
	VerdictPartialMatch Verdict = "PARTIAL_MATCH"
	VerdictWeakMatch    Verdict = "WEAK_MATCH"
)

// Valid reports whether v is one of the four known verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictStrongMatch, VerdictGoodMatch, VerdictPartialMatch, VerdictWeakMatch:
		return true
	}
	return false
}

// VerdictForScore derives a verdict from a 0-100 match score.
func VerdictForScore(score int) Verdict {
	switch {
	case score >= 90:
		return VerdictStrongMatch
	case score >= 70:
		return VerdictGoodMatch
	case score >= 50:
		return VerdictPartialMatch
	default:
		return VerdictWeakMatch
	}
}

// Aggregate Root: Analysis
// One per job description (unique). Created pending alongside its parent,
// mutated only by the analysis orchestrator afterwards.
type Analysis struct {
	ID               AnalysisID `json:"id"`
	JobDescriptionID string     `json:"job_description_id"`
	Status           Status     `json:"status"`
	MatchScore       int        `json:"match_score"`
	Verdict          Verdict    `json:"verdict,omitempty"`
	Summary          string     `json:"summary,omitempty"`
	Strengths        string     `json:"strengths,omitempty"`
	Weaknesses       string     `json:"weaknesses,omitempty"`
	Recommendations  string     `json:"recommendations,omitempty"`
	MissingKeywords  []string   `json:"missing_keywords"`
	AIModel          string     `json:"ai_model,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Result carries everything a completed run persists in one update.
type Result struct {
	MatchScore      int
	Verdict         Verdict
	Summary         string
	Strengths       string
	Weaknesses      string
	Recommendations string
	MissingKeywords []string
	AIModel         string
}
