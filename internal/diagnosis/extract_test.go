package diagnosis

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestExtractEmpty(t *testing.T) {
	for _, input := range []string{"", " ", "   ", "\n\t "} {
		got := Extract(input)
		if got == nil || len(got) != 0 {
			t.Errorf("Expected empty list for %q, got %v", input, got)
		}
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
		source   Source
	}{
		{
			name:     "Simple list",
			input:    "pneumonia, hypertension, diabetes",
			expected: []string{"pneumonia", "hypertension", "diabetes"},
			source:   SourceDirect,
		},
		{
			name:     "Quotes and brackets",
			input:    " pneumonia,  hypertension , diabetes mellitus, 'asthma', [COPD], (anxiety)",
			expected: []string{"pneumonia", "hypertension", "diabetes mellitus", "asthma", "COPD", "anxiety"},
			source:   SourceDirect,
		},
		{
			name:     "Nested wrapping and newlines",
			input:    "\n[\"sepsis\"],\t{'acute kidney injury'} ,\n",
			expected: []string{"sepsis", "acute kidney injury"},
			source:   SourceDirect,
		},
		{
			name:     "Stop prefixed segments dropped",
			input:    "The patient has, pneumonia, following recovery, cellulitis",
			expected: []string{"pneumonia", "cellulitis"},
			source:   SourceDirect,
		},
		{
			name:     "Every segment stop prefixed triggers colon fallback",
			input:    "diagnosis: pneumonia, the hypertension, assessment: diabetes",
			expected: []string{"pneumonia", "the hypertension", "assessment: diabetes"},
			source:   SourceColonFallback,
		},
		{
			name:     "Colon fallback with nothing after colon",
			input:    "Diagnosis:  ,",
			expected: []string{NoDiagnosesFound},
			source:   SourceSentinel,
		},
		{
			name:     "Negative finding",
			input:    "No significant findings.",
			expected: []string{NoDiagnosesFound},
			source:   SourceSentinel,
		},
		{
			name:     "Stop prefix without colon",
			input:    "The Following Syndrome",
			expected: []string{NoDiagnosesFound},
			source:   SourceSentinel,
		},
		{
			name:     "Only separators",
			input:    ", , ,",
			expected: []string{NoDiagnosesFound},
			source:   SourceSentinel,
		},
		{
			name:     "Negation prefix needs a word boundary",
			input:    "pulmonary nodule, Nodular goiter",
			expected: []string{"pulmonary nodule", "Nodular goiter"},
			source:   SourceDirect,
		},
		{
			name:     "Negation words inside diagnosis names are kept",
			input:    "Nonepileptic seizures, asthma, nonerosive reflux disease",
			expected: []string{"Nonepileptic seizures", "asthma", "nonerosive reflux disease"},
			source:   SourceDirect,
		},
		{
			name:     "Nil disease is a diagnosis",
			input:    "Nil disease, gout",
			expected: []string{"Nil disease", "gout"},
			source:   SourceDirect,
		},
		{
			name:     "Whole negation words dropped",
			input:    "None, pneumonia, N/A, none.",
			expected: []string{"pneumonia"},
			source:   SourceDirect,
		},
		{
			name:     "Single word-prefixed diagnosis",
			input:    "nonerosive reflux disease",
			expected: []string{"nonerosive reflux disease"},
			source:   SourceDirect,
		},
		{
			name:     "Duplicates keep first casing",
			input:    "Pneumonia, pneumonia, HYPERTENSION, hypertension , 'PNEUMONIA'",
			expected: []string{"Pneumonia", "HYPERTENSION"},
			source:   SourceDirect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := defaultExtractor.Parse(tt.input)

			if !reflect.DeepEqual(result.Diagnoses, tt.expected) {
				t.Errorf("Expected %q, got %q", tt.expected, result.Diagnoses)
			}
			if result.Source != tt.source {
				t.Errorf("Expected source %s, got %s", tt.source, result.Source)
			}
		})
	}
}

// Every segment here is stop-prefixed, so the colon fallback returns the
// segments unfiltered; "hypertension" and "diabetes" survive inside longer
// entries rather than as exact items.
func TestExtractPrefixedSegmentsKeepDiagnoses(t *testing.T) {
	result := Extract("diagnosis: pneumonia, the hypertension, assessment: diabetes")

	for _, want := range []string{"pneumonia", "hypertension", "diabetes"} {
		found := false
		for _, got := range result {
			if strings.Contains(got, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected %q to be present in %q", want, result)
		}
	}
}

func TestExtractIdempotent(t *testing.T) {
	lists := [][]string{
		{"pneumonia", "hypertension", "diabetes"},
		{"type 2 diabetes mellitus"},
		{"COPD exacerbation", "Atrial fibrillation", "CKD stage 3"},
		{"Sepsis", "acute kidney injury", "Hypokalemia", "anemia of chronic disease"},
	}

	for _, list := range lists {
		rendered := strings.Join(list, ", ")
		first := Extract(rendered)
		if !reflect.DeepEqual(first, list) {
			t.Errorf("Expected %q, got %q", list, first)
		}

		second := Extract(strings.Join(first, ", "))
		if !reflect.DeepEqual(second, first) {
			t.Errorf("Expected re-extraction to be stable, got %q then %q", first, second)
		}
	}
}

func TestExtractNoCaseInsensitiveDuplicates(t *testing.T) {
	inputs := []string{
		"a, A, b, B, a",
		"Asthma, asthma , [ASTHMA], (asthma)",
		"Diagnosis: x, X, y",
		"gout,Gout,GOUT,gOuT,pseudogout",
		"diagnosis: Flu, flu, the flu",
	}

	for _, input := range inputs {
		seen := map[string]bool{}
		for _, d := range Extract(input) {
			key := strings.ToLower(d)
			if seen[key] {
				t.Errorf("Duplicate %q in result for %q", d, input)
			}
			seen[key] = true
		}
	}
}

func TestExtractPreservesFirstSeenOrder(t *testing.T) {
	got := Extract("gout, Anemia, GOUT, migraine, anemia, Migraine, asthma")
	expected := []string{"gout", "Anemia", "migraine", "asthma"}

	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"Flu", "flu ", "FLU", "cold"})
	expected := []string{"Flu", "cold"}

	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %q, got %q", expected, got)
	}

	if got := Dedupe(nil); len(got) != 0 {
		t.Errorf("Expected empty result, got %q", got)
	}
}

func TestNewExtractorCustomPrefixes(t *testing.T) {
	e := NewExtractor([]string{"Rule out", "  possible"}, []string{})

	got := e.Extract("rule out sepsis, Possible pneumonia, No acute distress, gastritis")
	expected := []string{"No acute distress", "gastritis"}

	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %q, got %q", expected, got)
	}

	if !reflect.DeepEqual(e.StopPrefixes(), []string{"rule out", "possible"}) {
		t.Errorf("Unexpected stop prefixes: %q", e.StopPrefixes())
	}
	if len(e.NegationPrefixes()) != 0 {
		t.Errorf("Expected negation filter disabled, got %q", e.NegationPrefixes())
	}
}

func TestNewExtractorDefaults(t *testing.T) {
	e := NewExtractor(nil, nil)

	if !reflect.DeepEqual(e.StopPrefixes(), DefaultStopPrefixes) {
		t.Errorf("Expected default stop prefixes, got %q", e.StopPrefixes())
	}
	if !reflect.DeepEqual(e.NegationPrefixes(), DefaultNegationPrefixes) {
		t.Errorf("Expected default negation prefixes, got %q", e.NegationPrefixes())
	}
}

func TestNewExtractorFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefixes.yaml")
	content := "stop_prefixes:\n  - Impression\n  - plan\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write prefix file: %v", err)
	}

	e, err := NewExtractorFromFile(path, DefaultStopPrefixes, DefaultNegationPrefixes)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !reflect.DeepEqual(e.StopPrefixes(), []string{"impression", "plan"}) {
		t.Errorf("Unexpected stop prefixes: %q", e.StopPrefixes())
	}
	if !reflect.DeepEqual(e.NegationPrefixes(), DefaultNegationPrefixes) {
		t.Errorf("Expected negation fallback, got %q", e.NegationPrefixes())
	}

	got := e.Extract("Impression: stable, the flu, plan to discharge")
	expected := []string{"the flu"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestLoadPrefixFileErrors(t *testing.T) {
	if _, err := LoadPrefixFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("stop_prefixes: [unclosed"), 0o600); err != nil {
		t.Fatalf("Failed to write prefix file: %v", err)
	}
	if _, err := LoadPrefixFile(path); err == nil {
		t.Error("Expected parse error")
	}
}
