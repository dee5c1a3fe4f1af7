package latex

import (
	"regexp"
	"strings"
)

var (
	leadingFenceRe  = regexp.MustCompile("(?i)^```(?:latex)?[ \t]*\n?")
	trailingFenceRe = regexp.MustCompile("\n?```\\s*$")
)

// StripCodeFence removes a markdown code fence the model may have
// wrapped around the document.
func StripCodeFence(code string) string {
	out := strings.TrimSpace(code)
	out = leadingFenceRe.ReplaceAllString(out, "")
	out = trailingFenceRe.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// CompleteDocument reports whether code has a document-class declaration
// and both document boundary markers.
func CompleteDocument(code string) bool {
	return strings.Contains(code, `\documentclass`) &&
		strings.Contains(code, `\begin{document}`) &&
		strings.Contains(code, `\end{document}`)
}
