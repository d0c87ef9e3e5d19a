// Package security screens user-supplied question text before it is
// interpolated into model prompts.
package security

import (
	"regexp"
	"strings"
	"unicode"
)

// ScreenResult reports what a screening found.
type ScreenResult struct {
	Safe     bool
	Patterns []string
}

// QuestionScreen rejects question text carrying common prompt
// injection markers. Pattern matching is a first line of defense, not
// a guarantee; the system prompts stay hardened regardless.
type QuestionScreen struct {
	patterns []*regexp.Regexp
}

// NewQuestionScreen compiles the default pattern set.
func NewQuestionScreen() *QuestionScreen {
	patterns := []string{
		// Attempts to displace the standing instructions.
		`(?i)(ignore|disregard|forget|override)\s+(all\s+)?(previous|above|prior|earlier)\s+(instructions?|prompts?|rules?|context)`,

		// Role reassignment.
		`(?i)^(pretend|act|behave|imagine)\s+(you\s+are|to\s+be|as\s+if|like)`,
		`(?i)^you\s+are\s+now\s+a`,
		`(?i)^from\s+now\s+on,?\s+you\s+(are|will|must)`,

		// Fake control channels.
		`(?i)^\s*(system|admin)\s*(mode|override|command)?\s*:`,
		`(?i)^new\s+(instruction|task|rule)\s*:`,

		// Delimiter escapes.
		`(?i)</?(system|instruction|prompt)>`,
		`(?i)\]\s*\[\s*(system|assistant|instruction)`,

		// Known jailbreak phrasing.
		`(?i)do\s+anything\s+now`,
		`(?i)jailbreak`,
		`(?i)bypass\s+(safety|filter|restrictions?)`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}
	return &QuestionScreen{patterns: compiled}
}

// Check screens the input and lists every matched pattern.
func (s *QuestionScreen) Check(input string) ScreenResult {
	normalized := normalize(input)

	var matched []string
	for _, re := range s.patterns {
		if re.MatchString(normalized) {
			matched = append(matched, re.String())
		}
	}
	return ScreenResult{Safe: len(matched) == 0, Patterns: matched}
}

// IsSafe reports whether no pattern matched.
func (s *QuestionScreen) IsSafe(input string) bool {
	return s.Check(input).Safe
}

// normalize strips zero-width and combining characters and collapses
// whitespace, so spacing tricks cannot split a pattern.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
