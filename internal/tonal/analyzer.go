// Package tonal listens to the raw audio and reports the emotional shape
// of the call: overall sentiment and tone plus timestamped tonal shifts.
// It needs no transcript, so the pipeline runs it concurrently with
// extraction. Its failure never aborts the request.
package tonal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/echo/internal/gemini"
)

const tonalPrompt = `You are an expert tonal and sentiment analysis specialist.
Listen to the provided audio file and give a detailed analysis of the tone and sentiment of the speakers in the call.
Provide insights on emotions, attitudes, and overall mood conveyed by the speakers.
also provide timestamps for key tonal shifts.

You must return the analysis strictly in the following JSON format:

{
  "overall_analysis": {
    "summary": "A brief paragraph summarizing the call context and outcome.",
    "overall_sentiment": "Positive | Neutral | Negative | Mixed",
    "overall_tone": "e.g., Professional, Polite, Urgent"
  },

  "key_tonal_shifts": [
    {
      "timestamp": "MM:SS",
      "trigger_event": "The specific topic or reason causing the shift (e.g., Policy Announcement)",
      "description": "Description of how the tone changed."
    }
  ]
}`

// Report is the model's tonal verdict for one call.
type Report struct {
	OverallAnalysis OverallAnalysis `json:"overall_analysis"`
	KeyTonalShifts  []TonalShift    `json:"key_tonal_shifts"`
}

type OverallAnalysis struct {
	Summary          string `json:"summary"`
	OverallSentiment string `json:"overall_sentiment"` // Positive | Neutral | Negative | Mixed
	OverallTone      string `json:"overall_tone"`
}

type TonalShift struct {
	Timestamp    string `json:"timestamp"` // MM:SS
	TriggerEvent string `json:"trigger_event"`
	Description  string `json:"description"`
}

// Result wraps the report with the file it belongs to. A non-empty Err
// means the stage was absorbed: Analysis is nil and tokens are zero.
type Result struct {
	FileName     string
	Analysis     *Report
	InputTokens  int
	OutputTokens int
	Err          string
}

type Analyzer struct {
	llm    *gemini.Client
	logger *slog.Logger
}

func New(llm *gemini.Client, logger *slog.Logger) *Analyzer {
	return &Analyzer{llm: llm, logger: logger}
}

// Analyze runs the single tonal-analysis call over the audio.
func (a *Analyzer) Analyze(ctx context.Context, audio []byte, mimeType, fileName string) *Result {
	a.logger.Info("analyzing call tone",
		"file", fileName,
		"mime_type", mimeType,
		"bytes", len(audio),
	)

	res, err := a.llm.Generate(ctx, tonalPrompt, &gemini.Audio{MIMEType: mimeType, Data: audio})
	if err != nil {
		a.logger.Error("tonal analysis call failed", "file", fileName, "error", err)
		return &Result{FileName: fileName, Err: fmt.Sprintf("tonal analysis failed: %v", err)}
	}

	var report Report
	if err := json.Unmarshal([]byte(gemini.CleanJSON(res.Text)), &report); err != nil {
		a.logger.Error("failed to parse tonal analysis response",
			"file", fileName,
			"error", err,
			"raw", res.Text,
		)
		return &Result{FileName: fileName, Err: fmt.Sprintf("parse tonal analysis: %v", err)}
	}

	if report.KeyTonalShifts == nil {
		report.KeyTonalShifts = []TonalShift{}
	}

	a.logger.Info("tonal analysis complete",
		"file", fileName,
		"shifts", len(report.KeyTonalShifts),
		"input_tokens", res.InputTokens,
		"output_tokens", res.OutputTokens,
	)

	return &Result{
		FileName:     fileName,
		Analysis:     &report,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
	}
}
