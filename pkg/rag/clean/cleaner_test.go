package clean

import (
	"testing"
)

func TestPipelineClean(t *testing.T) {
	pipeline := NewPipeline()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text untouched",
			input: "PT-1 is a pressure transmitter used on line 4.",
			want:  "PT-1 is a pressure transmitter used on line 4.",
		},
		{
			name:  "bracketed source reference",
			input: "The policy allows remote work [handbook.pdf].",
			want:  "The policy allows remote work.",
		},
		{
			name:  "parenthetical source reference",
			input: "Vacation is 20 days (see policy.pdf).",
			want:  "Vacation is 20 days.",
		},
		{
			name:  "bare file path",
			input: "Details are in docs/setup-guide.md if you need them.",
			want:  "Details are in if you need them.",
		},
		{
			name:  "lead-in boilerplate",
			input: "According to the documents, PT-1 is a pump.",
			want:  "PT-1 is a pump.",
		},
		{
			name:  "stacked lead-ins",
			input: "Based on the documents, according to the context, the answer is yes.",
			want:  "the answer is yes.",
		},
		{
			name:  "repeated commas and spaces",
			input: "First,,  second ,  third.",
			want:  "First, second, third.",
		},
		{
			name:  "whitespace only",
			input: "   \n\t  ",
			want:  "",
		},
		{
			name:  "combined leakage",
			input: "According to the provided documents, the limit is 50 bar [spec-sheet.pdf] .",
			want:  "the limit is 50 bar.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pipeline.Clean(tt.input)
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPipelineIdempotent(t *testing.T) {
	pipeline := NewPipeline()

	inputs := []string{
		"PT-1 is a pressure transmitter used on line 4.",
		"The policy allows remote work [handbook.pdf].",
		"Based on the documents, according to the context, the answer is yes.",
		"First,,  second ,  third.",
		"Details are in docs/setup-guide.md and notes.txt.",
		"",
		"   spaced   out   ",
		"According to the documents, based on the documents, see report.docx (from the document archive.pdf).",
	}

	for _, input := range inputs {
		once := pipeline.Clean(input)
		twice := pipeline.Clean(once)
		if once != twice {
			t.Errorf("Clean not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestIndividualRules(t *testing.T) {
	tests := []struct {
		rule  string
		input string
		want  string
	}{
		{"strip_bracketed_sources", "ok [report.pdf] done", "ok  done"},
		{"strip_bracketed_sources", "keep [this bracket]", "keep [this bracket]"},
		{"strip_parenthetical_sources", "fine (source: intro.md) text", "fine  text"},
		{"strip_parenthetical_sources", "keep (normal aside) text", "keep (normal aside) text"},
		{"strip_file_paths", "read manual.pdf now", "read  now"},
		{"strip_lead_ins", "According to your documents: yes", "yes"},
		{"strip_lead_ins", "The documents say yes", "The documents say yes"},
		{"collapse_punctuation", "wait , here", "wait, here"},
		{"collapse_whitespace", "a  b\t\tc", "a b c"},
		{"trim", "  x  ", "x"},
	}

	rules := make(map[string]Rule)
	for _, rule := range NewPipeline().Rules() {
		rules[rule.Name] = rule
	}

	for _, tt := range tests {
		rule, ok := rules[tt.rule]
		if !ok {
			t.Fatalf("rule %q not found in pipeline", tt.rule)
		}
		if got := rule.Apply(tt.input); got != tt.want {
			t.Errorf("%s(%q) = %q, want %q", tt.rule, tt.input, got, tt.want)
		}
	}
}
