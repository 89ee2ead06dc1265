// Package prompts resolves the extraction-prompt template for a
// domain/category pair. Known pairs use the template stored in the prompts
// table; pairs first seen on this request get a template synthesized by the
// model from a couple of reference examples, which is then written back to
// the table off the request path.
package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/MikeSquared-Agency/echo/internal/domains"
	"github.com/MikeSquared-Agency/echo/internal/gemini"
	"github.com/MikeSquared-Agency/echo/internal/tasks"
)

// PromptStore is the slice of the persistence gateway the resolver needs.
type PromptStore interface {
	FetchExamplePrompts(ctx context.Context, ids []int) (map[int]string, error)
	SavePrompt(ctx context.Context, domain, category, prompt string) error
}

// Resolution is the outcome of template resolution. Generated reports
// whether Template was synthesized on this request; when false the
// extractor resolves the template itself from storage. A synthesis failure
// lands in Err and leaves Template empty, which sends the extractor down
// the same stored-template path.
type Resolution struct {
	Template     string
	Generated    bool
	InputTokens  int
	OutputTokens int
	Err          string
}

type Resolver struct {
	llm      *gemini.Client
	store    PromptStore
	registry *domains.Registry
	runner   *tasks.Runner
	logger   *slog.Logger
}

func New(llm *gemini.Client, store PromptStore, registry *domains.Registry, runner *tasks.Runner, logger *slog.Logger) *Resolver {
	return &Resolver{
		llm:      llm,
		store:    store,
		registry: registry,
		runner:   runner,
		logger:   logger,
	}
}

// Resolve decides how the extraction stage gets its template. newPair is
// the transcription stage's report of whether this request introduced the
// pair; the registry itself cannot answer that here because the pair is
// already registered by the time resolution runs.
func (r *Resolver) Resolve(ctx context.Context, domain, category string, newPair bool) *Resolution {
	if !newPair {
		return &Resolution{}
	}

	r.logger.Info("unknown domain/category pair, synthesizing extraction prompt",
		"domain", domain,
		"category", category,
	)

	examples, err := r.store.FetchExamplePrompts(ctx, examplePromptIDs)
	if err != nil {
		r.logger.Warn("example prompt fetch failed, synthesizing without examples", "error", err)
		examples = nil
	}

	prompt := fmt.Sprintf(synthesisPrompt, domain, category, renderExamples(examples), domain, category)

	res, err := r.llm.Generate(ctx, prompt, nil)
	if err != nil {
		r.logger.Error("prompt synthesis failed",
			"domain", domain,
			"category", category,
			"error", err,
		)
		return &Resolution{Err: fmt.Sprintf("prompt synthesis failed: %v", err)}
	}

	template := strings.TrimSpace(gemini.CleanJSON(res.Text))
	if template == "" {
		r.logger.Error("prompt synthesis returned empty text", "domain", domain, "category", category)
		return &Resolution{Err: "prompt synthesis returned empty text"}
	}

	r.registry.Register(domain, category)

	r.logger.Info("extraction prompt synthesized",
		"domain", domain,
		"category", category,
		"input_tokens", res.InputTokens,
		"output_tokens", res.OutputTokens,
	)

	r.scheduleWriteBack(domain, category, template)

	return &Resolution{
		Template:     template,
		Generated:    true,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
	}
}

// scheduleWriteBack persists the synthesized template outside the request
// path. The save is idempotent on (domain, category), so retrying after a
// transient failure is safe.
func (r *Resolver) scheduleWriteBack(domain, category, template string) {
	name := fmt.Sprintf("prompt-writeback %s/%s", domain, category)
	r.runner.Go(name, func(ctx context.Context) error {
		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = 30 * time.Second
		op := func() error {
			return r.store.SavePrompt(ctx, domain, category, template)
		}
		if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 3), ctx)); err != nil {
			return fmt.Errorf("saving prompt for %s/%s: %w", domain, category, err)
		}
		r.logger.Info("synthesized prompt persisted", "domain", domain, "category", category)
		return nil
	})
}

func renderExamples(examples map[int]string) string {
	var b strings.Builder
	n := 0
	for _, id := range examplePromptIDs {
		text, ok := examples[id]
		if !ok || text == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "\nEXAMPLE %d:\n%s\n", n, text)
	}
	return b.String()
}
