package ai

import "context"

// MatchInput carries the two texts being scored against each other.
type MatchInput struct {
	JobDescription string
	ResumeText     string
}

// MatchResult is the validated, normalized shape of one scoring response.
// Rich-text fields are already restricted to <ul><li> markup.
type MatchResult struct {
	MatchScore      int
	Summary         string
	Strengths       string
	Weaknesses      string
	Recommendations string
	MissingKeywords []string
	Verdict         string
	Model           string
}

// MatchOutcome distinguishes "the analysis legitimately failed" from a
// crash: clients never return Go errors past this boundary, they fill
// Err with a short display-safe message instead.
type MatchOutcome struct {
	Result *MatchResult
	Err    string
}

// Analyzer port: scores a resume against a job description.
type Analyzer interface {
	AnalyzeMatch(ctx context.Context, in MatchInput) MatchOutcome
}

// ProjectInput mirrors a user-provided extra project for prompt building.
type ProjectInput struct {
	Name         string
	Description  string
	Technologies string
	Duration     string
}

// Findings are the completed analysis facts the rewrite prompt leans on.
type Findings struct {
	MatchScore      int
	Verdict         string
	MissingKeywords []string
}

// GenerateInput is everything the LaTeX generator needs for one rewrite.
type GenerateInput struct {
	ResumeText          string
	JobDescription      string
	Findings            Findings
	AcceptedSuggestions []string
	AdditionalKeywords  []string
	AdditionalProjects  []ProjectInput
	SpecialInstructions string
}

// TokenUsage accounting reported by the model provider.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EstimatedCost    float64
}

// GenerateOutcome: LatexCode is a complete document (fences stripped,
// boundaries verified) when Err is empty.
type GenerateOutcome struct {
	LatexCode string
	Model     string
	Usage     TokenUsage
	Err       string
}

// LatexGenerator port: rewrites a resume as a LaTeX document.
type LatexGenerator interface {
	GenerateLatex(ctx context.Context, in GenerateInput) GenerateOutcome
}
