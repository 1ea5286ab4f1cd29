// Package diagnosis turns free-form model output into a clean list of
// diagnosis strings.
package diagnosis

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NoDiagnosesFound is the single entry returned when nothing survives extraction.
const NoDiagnosesFound = "No diagnoses found"

// Source identifies which path of the pipeline produced a result.
type Source string

const (
	SourceEmpty         Source = "empty"
	SourceDirect        Source = "direct"
	SourceColonFallback Source = "colon_fallback"
	SourceSentinel      Source = "sentinel"
)

// DefaultStopPrefixes are preamble words a decoder model tends to emit
// before the actual list.
var DefaultStopPrefixes = []string{"diagnosis", "assess", "the", "include", "following"}

// DefaultNegationPrefixes reject negative-finding statements. They match
// whole words only, so "nonerosive reflux disease" survives "none".
var DefaultNegationPrefixes = []string{"no ", "none", "n/a"}

// Result is the output of a single extraction.
type Result struct {
	Diagnoses []string
	Source    Source
}

// Extractor parses comma-separated model output. It holds no mutable state
// and is safe for concurrent use.
type Extractor struct {
	stopPrefixes     []string
	negationPrefixes []string
}

// NewExtractor creates an extractor using the given prefix sets. Nil sets
// fall back to the defaults; an empty non-nil set disables that filter.
func NewExtractor(stopPrefixes, negationPrefixes []string) *Extractor {
	if stopPrefixes == nil {
		stopPrefixes = DefaultStopPrefixes
	}
	if negationPrefixes == nil {
		negationPrefixes = DefaultNegationPrefixes
	}
	return &Extractor{
		stopPrefixes:     normalizePrefixes(stopPrefixes),
		negationPrefixes: normalizePrefixes(negationPrefixes),
	}
}

var defaultExtractor = NewExtractor(nil, nil)

// Extract runs the pipeline with the default prefix sets.
func Extract(raw string) []string {
	return defaultExtractor.Extract(raw)
}

// StopPrefixes returns a copy of the configured stop prefixes.
func (e *Extractor) StopPrefixes() []string {
	return append([]string(nil), e.stopPrefixes...)
}

// NegationPrefixes returns a copy of the configured negation prefixes.
func (e *Extractor) NegationPrefixes() []string {
	return append([]string(nil), e.negationPrefixes...)
}

// Extract returns the ordered, deduplicated diagnoses found in raw.
func (e *Extractor) Extract(raw string) []string {
	return e.Parse(raw).Diagnoses
}

// Parse never fails. Whitespace-only input yields an empty list; input with
// no usable candidates yields the NoDiagnosesFound sentinel.
func (e *Extractor) Parse(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{Diagnoses: []string{}, Source: SourceEmpty}
	}

	source := SourceDirect
	candidates := e.filter(split(raw))

	if len(candidates) == 0 && strings.Contains(raw, ":") {
		candidates = afterColon(raw)
		source = SourceColonFallback
	}

	if len(candidates) == 0 {
		return Result{Diagnoses: []string{NoDiagnosesFound}, Source: SourceSentinel}
	}

	return Result{Diagnoses: Dedupe(candidates), Source: source}
}

// filter drops empty segments and those opening with a stop or negation prefix.
func (e *Extractor) filter(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" {
			continue
		}
		lower := strings.ToLower(s)
		if hasAnyPrefix(lower, e.stopPrefixes) || hasAnyWordPrefix(lower, e.negationPrefixes) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// afterColon retries on the text following the first colon, without prefix
// filtering. Models often answer "Diagnoses: a, b, c".
func afterColon(raw string) []string {
	_, rest, _ := strings.Cut(raw, ":")
	out := []string{}
	for _, s := range split(rest) {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Dedupe removes case-insensitive duplicates, keeping the first occurrence.
func Dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func split(text string) []string {
	parts := strings.Split(text, ",")
	for i, p := range parts {
		parts[i] = trimCandidate(p)
	}
	return parts
}

func trimCandidate(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`"'[]{}()`, r)
	})
	return strings.TrimSpace(s)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// hasAnyWordPrefix is hasAnyPrefix on a word boundary: the prefix must end
// in a non-letter or be followed by one (or by the end of s).
func hasAnyWordPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if !strings.HasPrefix(s, p) {
			continue
		}
		last, _ := utf8.DecodeLastRuneInString(p)
		next, _ := utf8.DecodeRuneInString(s[len(p):])
		if len(s) == len(p) || !unicode.IsLetter(last) || !unicode.IsLetter(next) {
			return true
		}
	}
	return false
}

// normalizePrefixes lowercases and drops blank entries. Trailing spaces are
// kept so "no " does not match "nodule".
func normalizePrefixes(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, strings.ToLower(strings.TrimLeft(p, " \t")))
	}
	return out
}
