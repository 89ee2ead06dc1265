// Package extractor is the combined second-stage analysis: one model call
// that extracts domain-specific fields and the fixed general-metrics schema
// from the transcript. Unlike transcription, this stage never fails the
// request; every failure degrades to empty payloads plus an error
// descriptor, because the transcript alone still has value to the caller.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/echo/internal/gemini"
)

// TemplateStore is the slice of the persistence gateway the extractor
// needs: stored extraction templates by pair.
type TemplateStore interface {
	GetPrompt(ctx context.Context, domain, category string) (string, error)
}

type Extractor struct {
	llm    *gemini.Client
	store  TemplateStore
	logger *slog.Logger
}

func New(llm *gemini.Client, store TemplateStore, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, store: store, logger: logger}
}

type llmResponse struct {
	DomainSpecific map[string]any  `json:"domain_specific_data"`
	Metrics        *GeneralMetrics `json:"general_metrics"`
}

// Extract runs the combined extraction call. customPrompt is the template
// synthesized for a new pair this request, or empty to use the stored
// template (generic fallback when none exists).
func (e *Extractor) Extract(ctx context.Context, transcript, domain, category, customPrompt string) *Result {
	template := e.resolveTemplate(ctx, domain, category, customPrompt)
	prompt := fmt.Sprintf(combinedPrompt, domain, category, template, transcript)

	e.logger.Info("extracting call data",
		"domain", domain,
		"category", category,
		"transcript_len", len(transcript),
		"custom_template", customPrompt != "",
	)

	res, err := e.llm.Generate(ctx, prompt, nil)
	if err != nil {
		e.logger.Error("extraction call failed",
			"domain", domain,
			"category", category,
			"error", err,
		)
		return degraded(fmt.Sprintf("extraction call failed: %v", err))
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(gemini.CleanJSON(res.Text)), &resp); err != nil {
		e.logger.Error("failed to parse extraction response",
			"error", err,
			"raw", res.Text,
		)
		return degraded(fmt.Sprintf("parse extraction: %v", err))
	}

	if resp.DomainSpecific == nil {
		resp.DomainSpecific = map[string]any{}
	}
	if resp.Metrics == nil {
		resp.Metrics = &GeneralMetrics{}
	}
	resp.Metrics.Normalize()

	e.logger.Info("extraction complete",
		"domain", domain,
		"category", category,
		"domain_fields", len(resp.DomainSpecific),
		"input_tokens", res.InputTokens,
		"output_tokens", res.OutputTokens,
	)

	return &Result{
		DomainSpecific: resp.DomainSpecific,
		Metrics:        resp.Metrics,
		InputTokens:    res.InputTokens,
		OutputTokens:   res.OutputTokens,
	}
}

// resolveTemplate picks, in order: the caller's synthesized template, the
// stored template for the pair, the generic fallback. A storage failure is
// treated like an absent template.
func (e *Extractor) resolveTemplate(ctx context.Context, domain, category, customPrompt string) string {
	if customPrompt != "" {
		return customPrompt
	}
	stored, err := e.store.GetPrompt(ctx, domain, category)
	if err != nil {
		e.logger.Warn("stored template lookup failed, using generic template",
			"domain", domain,
			"category", category,
			"error", err,
		)
	}
	if stored != "" {
		return stored
	}
	return fmt.Sprintf(genericTemplate, domain, category)
}

func degraded(msg string) *Result {
	return &Result{DomainSpecific: map[string]any{}, Err: msg}
}
