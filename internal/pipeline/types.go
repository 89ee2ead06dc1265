package pipeline

import (
	"github.com/MikeSquared-Agency/echo/internal/extractor"
	"github.com/MikeSquared-Agency/echo/internal/tonal"
)

// Request is one uploaded call recording.
type Request struct {
	Audio    []byte
	MIMEType string
	Filename string
}

// StageTokens is the token consumption of a single model call.
type StageTokens struct {
	Input  int
	Output int
	Total  int
}

// TokenUsage aggregates the billable stages. Tonal analysis reports its own
// tokens inside its payload and synthesis tokens are only logged, so neither
// contributes to Total.
type TokenUsage struct {
	Transcription StageTokens
	Extraction    StageTokens
	Total         StageTokens
}

// Outcome is the combined result of one processed call. ExtractionErr is set
// when the second stage degraded; the transcript and tonal sections are still
// valid in that case.
type Outcome struct {
	RequestID      string
	Filename       string
	Transcript     string
	Domain         string
	Category       string
	DomainSpecific map[string]any
	Metrics        *extractor.GeneralMetrics
	ExtractionErr  string
	Tonal          *tonal.Result
	Tokens         TokenUsage
	CallID         int64
}

func stageTokens(input, output int) StageTokens {
	return StageTokens{Input: input, Output: output, Total: input + output}
}
