package latex

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	macroDefRe   = regexp.MustCompile(`\\(?:newcommand|def|renewcommand)\b`)
	beginAlignRe = regexp.MustCompile(`\\begin\{(?:tabular|align|array)`)
	endAlignRe   = regexp.MustCompile(`\\end\{(?:tabular|align|array)`)
)

// Sanitizer is a deterministic, line-oriented repair pass over model
// generated LaTeX, run before any compilation attempt. Sanitize is
// idempotent; Validate never mutates.
type Sanitizer struct {
	logger *zap.Logger
}

func NewSanitizer(logger *zap.Logger) *Sanitizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sanitizer{logger: logger}
}

// Sanitize applies the repair passes in order: macro parameter repair,
// special character escaping, ampersand escaping, invisible character
// stripping.
func (s *Sanitizer) Sanitize(code string) string {
	out := s.fixMacroParameters(code)
	out = s.escapeSpecialCharacters(out)
	out = escapeAmpersandsOutsideAlignment(out)
	out = stripInvisibleChars(out)
	return out
}

// Validate reports residual problems without mutating. Callers decide
// whether to proceed to compilation or fail fast.
func (s *Sanitizer) Validate(code string) []string {
	var problems []string

	if !strings.Contains(code, `\documentclass`) {
		problems = append(problems, `missing \documentclass`)
	}
	if !strings.Contains(code, `\begin{document}`) {
		problems = append(problems, `missing \begin{document}`)
	}
	if !strings.Contains(code, `\end{document}`) {
		problems = append(problems, `missing \end{document}`)
	}

	open := strings.Count(code, "{")
	closed := strings.Count(code, "}")
	if open != closed {
		problems = append(problems, fmt.Sprintf("unbalanced braces: %d open, %d close", open, closed))
	}

	if hasIllegalMacroParameters(code) {
		problems = append(problems, "contains #10 or higher parameter numbers in macro definitions")
	}
	if hasAmpersandsOutsideAlignment(code) {
		problems = append(problems, "may contain unescaped & outside tabular")
	}

	return problems
}

// fixMacroParameters rewrites parameter references >= #10 down to #9,
// but only on macro-definition lines. Plain text like "Top #10
// achievements" elsewhere stays intact.
func (s *Sanitizer) fixMacroParameters(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if !macroDefRe.MatchString(line) {
			continue
		}
		lines[i] = s.fixParamsInLine(line)
	}
	return strings.Join(lines, "\n")
}

func (s *Sanitizer) fixParamsInLine(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '#' && !escaped(line, i) {
			j := i + 1
			for j < len(line) && isDigit(line[j]) {
				j++
			}
			if j-i-1 >= 2 {
				if n, err := strconv.Atoi(line[i+1 : j]); err == nil && n >= 10 {
					s.logger.Warn("fixed illegal parameter number in macro definition",
						zap.String("from", line[i:j]), zap.String("to", "#9"))
					b.WriteString("#9")
					i = j - 1
					continue
				}
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// escapeSpecialCharacters escapes stray # characters. The literal
// sequence C# is always escaped (the language name, not a parameter
// marker); otherwise # followed by a digit is preserved as a valid
// parameter reference and anything else becomes \#.
func (s *Sanitizer) escapeSpecialCharacters(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		line = escapeCSharp(line)
		lines[i] = escapeLooseHashes(line)
	}
	return strings.Join(lines, "\n")
}

func escapeCSharp(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		if line[i] == 'C' && i+1 < len(line) && line[i+1] == '#' && !escaped(line, i) {
			b.WriteString(`C\#`)
			i++
			continue
		}
		b.WriteByte(line[i])
	}
	return b.String()
}

func escapeLooseHashes(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '#' && !escaped(line, i) {
			if i+1 >= len(line) || !isDigit(line[i+1]) {
				b.WriteString(`\#`)
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// escapeAmpersandsOutsideAlignment escapes unescaped & everywhere except
// inside tabular/align/array environments, tracked line by line with an
// explicit flag.
func escapeAmpersandsOutsideAlignment(code string) string {
	lines := strings.Split(code, "\n")
	insideAlignment := false
	for i, line := range lines {
		if beginAlignRe.MatchString(line) {
			insideAlignment = true
		}
		if endAlignRe.MatchString(line) {
			insideAlignment = false
		}
		if insideAlignment {
			continue
		}
		lines[i] = escapeAmpersandsInLine(line)
	}
	return strings.Join(lines, "\n")
}

func escapeAmpersandsInLine(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		if line[i] == '&' && !escaped(line, i) {
			b.WriteString(`\&`)
			continue
		}
		b.WriteByte(line[i])
	}
	return b.String()
}

// stripInvisibleChars removes zero-width and BOM code points that make
// compilers reject otherwise valid source.
func stripInvisibleChars(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, code)
}

func hasIllegalMacroParameters(code string) bool {
	for _, line := range strings.Split(code, "\n") {
		if !macroDefRe.MatchString(line) {
			continue
		}
		for i := 0; i < len(line)-2; i++ {
			if line[i] == '#' && !escaped(line, i) &&
				isDigit(line[i+1]) && line[i+1] != '0' && isDigit(line[i+2]) {
				return true
			}
		}
	}
	return false
}

func hasAmpersandsOutsideAlignment(code string) bool {
	insideAlignment := false
	for _, line := range strings.Split(code, "\n") {
		if beginAlignRe.MatchString(line) {
			insideAlignment = true
		}
		if endAlignRe.MatchString(line) {
			insideAlignment = false
		}
		if insideAlignment {
			continue
		}
		for i := 0; i < len(line); i++ {
			if line[i] == '&' && !escaped(line, i) {
				return true
			}
		}
	}
	return false
}

// escaped reports whether the character at position i is preceded by a
// backslash.
func escaped(line string, i int) bool {
	return i > 0 && line[i-1] == '\\'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
