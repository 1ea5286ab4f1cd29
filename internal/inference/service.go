package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/serbia-gov/clinical-dx/internal/diagnosis"
	"github.com/serbia-gov/clinical-dx/internal/shared/metrics"
)

// Service runs one request end to end: validate, prompt, generate, extract.
type Service struct {
	generator Generator
	extractor *diagnosis.Extractor
	maxLength int
}

// NewService creates a service around a shared generator. A nil extractor
// uses the default prefix sets. maxLength caps max_length; zero disables
// the cap.
func NewService(generator Generator, extractor *diagnosis.Extractor, maxLength int) *Service {
	if extractor == nil {
		extractor = diagnosis.NewExtractor(nil, nil)
	}
	return &Service{
		generator: generator,
		extractor: extractor,
		maxLength: maxLength,
	}
}

// Diagnose makes a single generator call; there is no retry and no
// deadline beyond what ctx carries.
func (s *Service) Diagnose(ctx context.Context, req ClinicalNoteRequest) (*DiagnosesResponse, diagnosis.Source, error) {
	if err := req.Validate(s.maxLength); err != nil {
		return nil, "", err
	}

	prompt := BuildPrompt(req.NoteText())

	start := time.Now()
	completion, err := s.generator.Generate(ctx, prompt, req.SamplingConfig())
	metrics.ObserveModelLatency(time.Since(start))
	if err != nil {
		return nil, "", fmt.Errorf("generate: %w", err)
	}

	result := s.extractor.Parse(completion.Text)
	metrics.RecordExtraction(string(result.Source), len(result.Diagnoses))

	return &DiagnosesResponse{Diagnoses: result.Diagnoses}, result.Source, nil
}
