package inference

import "fmt"

const promptTemplate = `You are a medical expert. Extract all diagnoses from the clinical note below. Carefully read the following clinical note and list ALL possible diagnoses mentioned. The clinical note has all the information you need and it comes from the hospital.

Clinical Note: %s

Provide your answer as a simple comma-separated list of diagnoses without numbering, explanations, or other text:`

// BuildPrompt embeds the note verbatim into the instruction prompt.
func BuildPrompt(note string) string {
	return fmt.Sprintf(promptTemplate, note)
}
