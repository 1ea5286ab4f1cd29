package inference

import (
	"context"
	"math"
	"strings"

	apperrors "github.com/serbia-gov/clinical-dx/internal/shared/errors"
)

// Request defaults, chosen for short, near-deterministic diagnosis lists
const (
	DefaultMaxLength        = 256
	DefaultTemperature      = 0.2
	DefaultTopP             = 0.85
	DefaultTopK             = 40
	DefaultFrequencyPenalty = 0.3
)

// ClinicalNoteRequest is the body of POST /generate
type ClinicalNoteRequest struct {
	Note string `json:"note"`
	// ClinicalNote is the field name older clients send
	ClinicalNote     string  `json:"clinical_note,omitempty"`
	MaxLength        int     `json:"max_length"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	TopK             int     `json:"top_k"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
}

// NewClinicalNoteRequest returns a request carrying note and every default.
func NewClinicalNoteRequest(note string) ClinicalNoteRequest {
	return ClinicalNoteRequest{
		Note:             note,
		MaxLength:        DefaultMaxLength,
		Temperature:      DefaultTemperature,
		TopP:             DefaultTopP,
		TopK:             DefaultTopK,
		FrequencyPenalty: DefaultFrequencyPenalty,
	}
}

// NoteText returns the note, falling back to the legacy field.
func (r ClinicalNoteRequest) NoteText() string {
	if r.Note != "" {
		return r.Note
	}
	return r.ClinicalNote
}

// Validate checks the request against the sampling ranges the model server
// accepts. maxLength caps MaxLength; zero means no cap.
func (r ClinicalNoteRequest) Validate(maxLength int) error {
	if strings.TrimSpace(r.NoteText()) == "" {
		return apperrors.Invalid("note is required")
	}
	if r.MaxLength < 1 {
		return apperrors.Invalidf("max_length must be positive, got %d", r.MaxLength)
	}
	if maxLength > 0 && r.MaxLength > maxLength {
		return apperrors.Invalidf("max_length must be at most %d, got %d", maxLength, r.MaxLength)
	}
	if !finite(r.Temperature) || r.Temperature < 0 || r.Temperature > 2 {
		return apperrors.Invalidf("temperature must be in [0, 2], got %v", r.Temperature)
	}
	if !finite(r.TopP) || r.TopP <= 0 || r.TopP > 1 {
		return apperrors.Invalidf("top_p must be in (0, 1], got %v", r.TopP)
	}
	if r.TopK < 1 {
		return apperrors.Invalidf("top_k must be positive, got %d", r.TopK)
	}
	if !finite(r.FrequencyPenalty) || r.FrequencyPenalty < -2 || r.FrequencyPenalty > 2 {
		return apperrors.Invalidf("frequency_penalty must be in [-2, 2], got %v", r.FrequencyPenalty)
	}
	return nil
}

// SamplingConfig builds the generation controls for this request.
func (r ClinicalNoteRequest) SamplingConfig() SamplingConfig {
	return SamplingConfig{
		MaxTokens:        r.MaxLength,
		Temperature:      r.Temperature,
		TopP:             r.TopP,
		TopK:             r.TopK,
		FrequencyPenalty: r.FrequencyPenalty,
	}
}

// SamplingConfig is passed to the model unmodified. It is a value type;
// copies cannot affect the request it came from.
type SamplingConfig struct {
	MaxTokens        int
	Temperature      float64
	TopP             float64
	TopK             int
	FrequencyPenalty float64
}

// Completion is the text of a single generated sequence
type Completion struct {
	Text string
}

// DiagnosesResponse is the success body of POST /generate
type DiagnosesResponse struct {
	Diagnoses []string `json:"diagnoses"`
}

// Generator turns a prompt into one completion. Implementations are shared
// by all requests and must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg SamplingConfig) (Completion, error)
}

// HealthChecker reports whether a dependency can serve requests
type HealthChecker interface {
	Health(ctx context.Context) error
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
