package diagnosis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PrefixFile is the on-disk form of the tunable filter sets.
type PrefixFile struct {
	StopPrefixes     []string `yaml:"stop_prefixes"`
	NegationPrefixes []string `yaml:"negation_prefixes"`
}

// LoadPrefixFile reads a YAML prefix file. Keys missing from the file are
// returned as nil so callers can fall back to their defaults.
func LoadPrefixFile(path string) (*PrefixFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prefix file: %w", err)
	}

	var pf PrefixFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse prefix file %s: %w", path, err)
	}

	return &pf, nil
}

// NewExtractorFromFile builds an extractor from a prefix file, using the
// given fallbacks for any set the file leaves out.
func NewExtractorFromFile(path string, stopFallback, negationFallback []string) (*Extractor, error) {
	pf, err := LoadPrefixFile(path)
	if err != nil {
		return nil, err
	}

	stop := pf.StopPrefixes
	if stop == nil {
		stop = stopFallback
	}
	negation := pf.NegationPrefixes
	if negation == nil {
		negation = negationFallback
	}

	return NewExtractor(stop, negation), nil
}
