package prompt

import "fmt"

const (
	// Truncation protects prompt cost, not correctness.
	MaxJobDescriptionChars = 4000
	MaxResumeChars         = 6000
)

// AnalyzerSystemPrompt provides strict directions and schema for the
// scoring response.
func AnalyzerSystemPrompt() string {
	return `You are a professional career coach and hiring expert. Your task is to evaluate how well a given CV/resume matches a specific job description and provide insights on strengths, weaknesses, and suggestions for improvement.

You MUST respond ONLY with a valid JSON object containing these exact keys:
{
  "match_score": <integer from 0 to 100>,
  "summary": "Brief overall assessment (2-3 sentences, plain text)",
  "strengths": "<ul><li>...</li></ul> bullet list of the candidate's alignment with the job",
  "weaknesses": "<ul><li>...</li></ul> bullet list of gaps or concerns",
  "recommendations": "<ul><li>...</li></ul> actionable advice to improve the fit",
  "missing_keywords": ["keyword", "..."],
  "verdict": "STRONG_MATCH" | "GOOD_MATCH" | "PARTIAL_MATCH" | "WEAK_MATCH"
}

Format strengths, weaknesses and recommendations as HTML using only <ul> and <li> tags, nothing else.
Do not include any explanatory text before or after the JSON.`
}

// AnalyzerUserPrompt wraps the (already truncated) texts.
func AnalyzerUserPrompt(jobDescription, resumeText string) string {
	return fmt.Sprintf(`Job Description: %s

CV/Resume Content: %s

Provide a detailed analysis of how well the CV/Resume matches the Job Description. Highlight key skills, experiences, and qualifications that align with the job requirements, point out any gaps, and list concrete keywords from the job description that are missing from the resume.`,
		jobDescription, resumeText)
}

// Truncate hard-caps s at max bytes.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
