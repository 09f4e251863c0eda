package clean

import (
	"regexp"
	"strings"
)

// Rule is one independent text transform. Rules are applied in pipeline
// order; later rules assume earlier ones already ran (the whitespace
// collapse cleans up holes left by the strip rules).
type Rule struct {
	Name  string
	apply func(string) string
}

func (r Rule) Apply(text string) string {
	return r.apply(text)
}

// Pipeline strips retrieval leakage (document names, file paths, canned
// lead-ins) from generated answers before they reach the client. The whole
// pipeline is idempotent: cleaning already-cleaned text is a no-op.
type Pipeline struct {
	rules []Rule
}

var (
	// Bracketed or parenthetical references to source documents,
	// e.g. "[handbook.pdf]", "(see notes.md, page 3)".
	bracketedSourceRe     = regexp.MustCompile(`(?i)\[[^\[\]]*(?:\.(?:pdf|md|txt|docx?|html?)|\bsource\b|\bdocument\b|\bpage \d+)[^\[\]]*\]`)
	parentheticalSourceRe = regexp.MustCompile(`(?i)\([^()]*(?:\.(?:pdf|md|txt|docx?|html?)|\bsource:|\bfrom the document\b|\bpage \d+)[^()]*\)`)

	// Bare file-path-like substrings left in running text.
	filePathRe = regexp.MustCompile(`(?i)\b[\w\-./\\]+\.(?:pdf|md|txt|docx?|html?)\b`)

	// Boilerplate lead-ins the generation backend likes to open with.
	leadInRe = regexp.MustCompile(`(?i)^\s*(?:according to (?:the|your|these) (?:provided )?documents?|based on (?:the|your|these) (?:provided )?documents?|according to the (?:provided |retrieved )?context|based on the (?:provided |retrieved )?context|from the documents?)[,:]?\s*`)

	spaceBeforePunctRe = regexp.MustCompile(`[ \t]+([,.;:!?])`)
	repeatedCommaRe    = regexp.MustCompile(`,{2,}`)
	repeatedSpaceRe    = regexp.MustCompile(`[ \t]{2,}`)
	repeatedNewlineRe  = regexp.MustCompile(`\n{3,}`)
)

// NewPipeline returns the default ordered rule set.
func NewPipeline() *Pipeline {
	return &Pipeline{rules: []Rule{
		{Name: "strip_bracketed_sources", apply: func(s string) string {
			return bracketedSourceRe.ReplaceAllString(s, "")
		}},
		{Name: "strip_parenthetical_sources", apply: func(s string) string {
			return parentheticalSourceRe.ReplaceAllString(s, "")
		}},
		{Name: "strip_file_paths", apply: func(s string) string {
			return filePathRe.ReplaceAllString(s, "")
		}},
		{Name: "strip_lead_ins", apply: stripLeadIns},
		{Name: "collapse_punctuation", apply: func(s string) string {
			s = spaceBeforePunctRe.ReplaceAllString(s, "$1")
			return repeatedCommaRe.ReplaceAllString(s, ",")
		}},
		{Name: "collapse_whitespace", apply: func(s string) string {
			s = repeatedSpaceRe.ReplaceAllString(s, " ")
			return repeatedNewlineRe.ReplaceAllString(s, "\n\n")
		}},
		{Name: "trim", apply: strings.TrimSpace},
	}}
}

// Rules exposes the ordered rule list so individual rules can be tested.
func (p *Pipeline) Rules() []Rule {
	return p.rules
}

// Clean applies every rule in order.
func (p *Pipeline) Clean(text string) string {
	for _, rule := range p.rules {
		text = rule.Apply(text)
	}
	return text
}

// stripLeadIns removes lead-in boilerplate repeatedly: stripping one
// lead-in can expose another, and a single pass would leave it for the
// next cleaning, breaking idempotence.
func stripLeadIns(text string) string {
	for {
		stripped := leadInRe.ReplaceAllString(text, "")
		if stripped == text {
			return stripped
		}
		text = stripped
	}
}
