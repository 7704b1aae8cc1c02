package question

import (
	"regexp"
	"strings"
)

var (
	choiceLabel     = regexp.MustCompile(`([A-E]\.)`)
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
	doubledEscape   = regexp.MustCompile(`\\\\([^\\])`)
	escapeRun       = regexp.MustCompile(`\\{2,}`)
	spaceAfterSlash = regexp.MustCompile(`\\\s+`)
	paddedNewline   = regexp.MustCompile(`\s*\n\s*`)

	displayDollars  = regexp.MustCompile(`\$\$(.*?)\$\$`)
	tightOpen       = regexp.MustCompile(`(\S)(\\[(\[])`)
	tightClose      = regexp.MustCompile(`(\\[)\]])(\w)`)
	paddedOpen      = regexp.MustCompile(`(\\[(\[])\s+`)
	paddedClose     = regexp.MustCompile(`\s+(\\[)\]])`)
	needlessEscape  = regexp.MustCompile(`\\([^a-zA-Z\s()\[\]])`)
	doubleBackslash = strings.NewReplacer(`\\`, `\`)
)

const renderErrorFragment = "You can't use 'macro parameter charact"

// FormatChoices puts each multiple-choice label ("A." … "E.") on its own
// paragraph so the viewer renders one answer per line.
func FormatChoices(latex string) string {
	if latex == "" {
		return latex
	}
	latex = spaceAfterLabels(latex)
	latex = choiceLabel.ReplaceAllString(latex, "\n\n$1")
	latex = excessNewlines.ReplaceAllString(latex, "\n\n")
	return strings.TrimSpace(latex)
}

func spaceAfterLabels(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		b.WriteByte(s[i])
		if s[i] == '.' && i > 0 && s[i-1] >= 'A' && s[i-1] <= 'E' &&
			i+1 < len(s) && !isSpace(s[i+1]) {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// RepairExplanation collapses over-escaped backslashes and stray whitespace
// left behind by the explanation generator.
func RepairExplanation(s string) string {
	s = doubledEscape.ReplaceAllString(s, `\$1`)
	s = escapeRun.ReplaceAllString(s, `\`)
	s = strings.ReplaceAll(s, renderErrorFragment, "")
	s = strings.TrimSpace(s)
	s = spaceAfterSlash.ReplaceAllString(s, `\`)
	s = paddedNewline.ReplaceAllString(s, "\n")
	return excessNewlines.ReplaceAllString(s, "\n\n")
}

// CleanLatex converts dollar-delimited math to \( \) and \[ \] delimiters and
// normalizes spacing around them.
func CleanLatex(s string) string {
	if s == "" {
		return s
	}
	s = displayDollars.ReplaceAllString(s, `\[$1\]`)
	s = inlineDollars(s)
	s = tightOpen.ReplaceAllString(s, "$1 $2")
	s = tightClose.ReplaceAllString(s, "$1 $2")
	s = paddedOpen.ReplaceAllString(s, "$1")
	s = paddedClose.ReplaceAllString(s, "$1")
	s = doubleBackslash.Replace(s)
	return needlessEscape.ReplaceAllString(s, "$1")
}

// inlineDollars rewrites $…$ pairs whose dollars are not backslash-escaped.
func inlineDollars(s string) string {
	var b strings.Builder
	open := -1
	last := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || (i > 0 && s[i-1] == '\\') {
			continue
		}
		if open < 0 {
			open = i
			continue
		}
		b.WriteString(s[last:open])
		b.WriteString(`\(`)
		b.WriteString(s[open+1 : i])
		b.WriteString(`\)`)
		last = i + 1
		open = -1
	}
	b.WriteString(s[last:])
	return b.String()
}
