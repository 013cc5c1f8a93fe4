// Package logsafe keeps SQL text fit for log lines: regex-based credential
// redaction plus rune-safe truncation. Statements pass through here before
// every log write so GRANT/CREATE USER style secrets never reach log files.
package logsafe

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Rule rewrites text matching Pattern with Replacement before logging.
// Replacement may reference capture groups with ${n}.
type Rule struct {
	Pattern     string
	Replacement string
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Redactor applies an ordered rule list to SQL text bound for logs.
// Safe for concurrent use.
type Redactor struct {
	rules []compiledRule
}

// New compiles the rules into a Redactor. Returns an error on an invalid
// regex pattern.
func New(rules []Rule) (*Redactor, error) {
	compiled := make([]compiledRule, len(rules))
	for i, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("logsafe: invalid regex pattern %q: %w", rule.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, replacement: rule.Replacement}
	}
	return &Redactor{rules: compiled}, nil
}

// MustNew is New for static rule sets; it panics on an invalid pattern.
func MustNew(rules []Rule) *Redactor {
	r, err := New(rules)
	if err != nil {
		panic(err)
	}
	return r
}

// Apply rewrites every rule match in s, in rule order.
func (r *Redactor) Apply(s string) string {
	for _, rule := range r.rules {
		s = rule.pattern.ReplaceAllString(s, rule.replacement)
	}
	return s
}

// Truncate cuts s to at most maxLen bytes without splitting a rune, and
// marks the cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...[truncated]"
}
