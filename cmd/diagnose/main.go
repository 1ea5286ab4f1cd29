// Command diagnose sends a sample clinical note to a running diagnosis
// server and prints the JSON response.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const sampleNote = "Patient is a 67-year-old male presenting to the emergency department with a three-day history of productive cough, fever of 38.7°C, and difficulty breathing. He has a past medical history significant for type 2 diabetes mellitus and hypertension. Chest X-ray reveals right lower lobe infiltrate suggestive of pneumonia. He is started on IV antibiotics and supplemental oxygen."

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		url              string
		note             string
		timeout          time.Duration
		temperature      float64
		topP             float64
		topK             int
		maxLength        int
		frequencyPenalty float64
	)

	cmd := &cobra.Command{
		Use:          "diagnose",
		Short:        "Extract diagnoses from a clinical note via the diagnosis server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"note": note}

			// Only send what the user set; the server owns the defaults
			flags := cmd.Flags()
			if flags.Changed("temperature") {
				payload["temperature"] = temperature
			}
			if flags.Changed("top_p") {
				payload["top_p"] = topP
			}
			if flags.Changed("top_k") {
				payload["top_k"] = topK
			}
			if flags.Changed("max_length") {
				payload["max_length"] = maxLength
			}
			if flags.Changed("frequency_penalty") {
				payload["frequency_penalty"] = frequencyPenalty
			}

			client := &http.Client{Timeout: timeout}
			return run(client, url, payload, out)
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:8000", "Base URL of the diagnosis server")
	cmd.Flags().StringVar(&note, "note", sampleNote, "Clinical note to analyse")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "HTTP timeout (0 waits indefinitely)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.2, "Temperature for text generation")
	cmd.Flags().Float64Var(&topP, "top_p", 0.85, "Top-p sampling parameter")
	cmd.Flags().IntVar(&topK, "top_k", 40, "Top-k sampling parameter")
	cmd.Flags().IntVar(&maxLength, "max_length", 256, "Maximum tokens to generate")
	cmd.Flags().Float64Var(&frequencyPenalty, "frequency_penalty", 0.3, "Frequency penalty parameter")

	return cmd
}

// run posts payload to /generate and writes the indented response to out.
// Any transport failure or non-2xx status is an error.
func run(client *http.Client, baseURL string, payload map[string]any, out io.Writer) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(strings.TrimRight(baseURL, "/")+"/generate", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return fmt.Errorf("invalid JSON response: %w", err)
	}
	pretty.WriteByte('\n')

	_, err = out.Write(pretty.Bytes())
	return err
}
