package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/echo/internal/domains"
	"github.com/MikeSquared-Agency/echo/internal/gemini"
)

// Transcriber is the first pipeline stage: a single model call that produces
// a speaker-labeled transcript and classifies the call into a domain and
// category. This is the only stage whose failure aborts the request; without
// a transcript there is no meaningful downstream work.
type Transcriber struct {
	llm      *gemini.Client
	registry *domains.Registry
	logger   *slog.Logger
}

func New(llm *gemini.Client, registry *domains.Registry, logger *slog.Logger) *Transcriber {
	return &Transcriber{llm: llm, registry: registry, logger: logger}
}

// Result is immutable once returned. NewPair reports whether this call
// introduced the domain/category pair to the registry; prompt resolution
// uses it to decide on synthesis, since by the time that stage runs the
// pair is already registered.
type Result struct {
	Transcript   string
	Domain       string
	Category     string
	NewPair      bool
	InputTokens  int
	OutputTokens int
}

type modelReply struct {
	Transcription string `json:"transcription"`
	Domain        string `json:"domain"`
	Category      string `json:"category"`
}

// Transcribe runs the combined transcription and classification call. The
// registry's current pairs are rendered into the prompt as a hint, not a
// constraint; whatever pair comes back is registered.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (*Result, error) {
	prompt := fmt.Sprintf(detectionPrompt, t.registry.Hint())

	t.logger.Info("transcribing audio", "mime_type", mimeType, "bytes", len(audio))

	res, err := t.llm.Generate(ctx, prompt, &gemini.Audio{MIMEType: mimeType, Data: audio})
	if err != nil {
		return nil, fmt.Errorf("transcription call: %w", err)
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(gemini.CleanJSON(res.Text)), &reply); err != nil {
		t.logger.Error("failed to parse transcription response",
			"error", err,
			"raw", res.Text,
		)
		return nil, fmt.Errorf("parse transcription: %w", err)
	}

	domain := domains.Normalize(reply.Domain)
	category := domains.Normalize(reply.Category)
	if domain == "" {
		domain = "unknown"
	}
	if category == "" {
		category = "unknown"
	}

	added := t.registry.Register(domain, category)

	t.logger.Info("transcription complete",
		"domain", domain,
		"category", category,
		"new_pair", added,
		"transcript_len", len(reply.Transcription),
		"input_tokens", res.InputTokens,
		"output_tokens", res.OutputTokens,
	)

	return &Result{
		Transcript:   reply.Transcription,
		Domain:       domain,
		Category:     category,
		NewPair:      added,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
	}, nil
}
