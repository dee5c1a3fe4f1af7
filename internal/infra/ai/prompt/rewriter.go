package prompt

import (
	"fmt"
	"strings"

	"github.com/matchwise/matchwise/internal/domain/ai"
)

const (
	MaxRewriteResumeChars  = 10000
	MaxRewriteJobDescChars = 4000
)

// RewriterSystemPrompt instructs the model to return one complete LaTeX
// document and nothing else.
func RewriterSystemPrompt() string {
	return `You are an expert ATS-optimized resume writer and LaTeX specialist with 15+ years of experience in technical recruiting and resume optimization.

TASK: Rewrite a resume to be strongly tailored to the target job description while preserving the candidate's authentic experience.

WRITING REQUIREMENTS:
1. Professional Summary: Completely rewrite it to directly mirror the language and priorities of the job description. It must feel tailored, not generic.
2. Bullet points: Strengthen with quantified achievements where possible (numbers, percentages, scale). Use strong action verbs.
3. Keywords: Naturally weave ALL provided additional keywords into relevant sections. Do NOT drop any keyword - if it cannot fit into experience bullets, add it to a Skills or Competencies section.
4. Integrate ALL accepted suggestions, additional keywords, and additional projects naturally.
5. Fix any grammatical errors or typos from the original resume.
6. Keep ATS readability high - avoid tables, graphics, and fancy formatting inside content.
7. Preserve a one-page professional structure when possible.

LATEX OUTPUT REQUIREMENTS:
1. Return ONLY the complete LaTeX document - no markdown fences, no explanations, no preamble text.
2. Start with \documentclass and end with \end{document}.
3. Use only commands and packages from the provided template - do not introduce new ones.`
}

// BuildRewritePrompt enumerates every user-selected edit explicitly so
// the model cannot silently drop one, and closes with a checklist.
func BuildRewritePrompt(in ai.GenerateInput, template string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Original Resume:\n%s\n\n", strings.TrimSpace(in.ResumeText))
	fmt.Fprintf(&b, "## Target Job Description:\n%s\n\n", strings.TrimSpace(in.JobDescription))

	fmt.Fprintf(&b, "## Analysis Findings:\nMatch score: %d/100. Verdict: %s.\nMissing keywords from the original resume: %s\n\n",
		in.Findings.MatchScore, in.Findings.Verdict, orNone(strings.Join(in.Findings.MissingKeywords, ", ")))

	b.WriteString("## Accepted Suggestions (MUST integrate all of these):\n")
	if len(in.AcceptedSuggestions) == 0 {
		b.WriteString("None\n\n")
	} else {
		for _, s := range in.AcceptedSuggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Additional Keywords (MUST include every single one, do not skip any):\n%s\n\n",
		orNone(strings.Join(in.AdditionalKeywords, ", ")))

	b.WriteString("## Additional Projects (MUST add each to the Projects section):\n")
	if len(in.AdditionalProjects) == 0 {
		b.WriteString("None\n\n")
	} else {
		for _, p := range in.AdditionalProjects {
			fmt.Fprintf(&b, "- %s: %s (%s, %s)\n", p.Name, p.Description, p.Technologies, p.Duration)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Special Instructions:\n%s\n\n", orNone(in.SpecialInstructions))
	fmt.Fprintf(&b, "## LaTeX Template:\n%s\n\n", template)

	b.WriteString(`## Task:
Using the original resume content above, produce a fully rewritten, ATS-optimized resume in the LaTeX template provided.

CHECKLIST BEFORE RETURNING:
- [ ] Professional summary is rewritten to target the job description
- [ ] Every accepted suggestion is integrated
- [ ] Every additional keyword appears somewhere in the document
- [ ] Every additional project is added to the Projects section
- [ ] All typos and grammatical errors from the original are fixed
- [ ] All template placeholders are filled with real content
- [ ] Output is a complete LaTeX document starting with \documentclass`)

	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
