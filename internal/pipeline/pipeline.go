// Package pipeline orchestrates the call analysis stages: transcription with
// domain detection, prompt resolution, combined extraction, tonal analysis,
// persistence and event publication.
//
// Only transcription is fatal. Tonal analysis runs concurrently with prompt
// resolution and extraction since it reads the audio rather than the
// transcript, and every failure past the transcription gate degrades its own
// section of the result instead of aborting the request.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/MikeSquared-Agency/echo/internal/events"
	"github.com/MikeSquared-Agency/echo/internal/extractor"
	"github.com/MikeSquared-Agency/echo/internal/metrics"
	"github.com/MikeSquared-Agency/echo/internal/prompts"
	"github.com/MikeSquared-Agency/echo/internal/store"
	"github.com/MikeSquared-Agency/echo/internal/tonal"
	"github.com/MikeSquared-Agency/echo/internal/transcriber"
)

// CallStore persists completed analyses.
type CallStore interface {
	SaveCall(ctx context.Context, row store.GeneralRow, domainJSON []byte) (int64, error)
	SaveTonal(ctx context.Context, fileName string, data []byte, inputTokens, outputTokens int) error
}

// Pipeline wires the analysis stages together. The events client may be nil
// when NATS is not configured.
type Pipeline struct {
	transcriber *transcriber.Transcriber
	resolver    *prompts.Resolver
	extractor   *extractor.Extractor
	tonal       *tonal.Analyzer
	store       CallStore
	events      *events.Client
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func New(tr *transcriber.Transcriber, res *prompts.Resolver, ext *extractor.Extractor, ton *tonal.Analyzer, s CallStore, ev *events.Client, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		transcriber: tr,
		resolver:    res,
		extractor:   ext,
		tonal:       ton,
		store:       s,
		events:      ev,
		metrics:     m,
		logger:      logger,
	}
}

// Process runs the full pipeline for one uploaded recording. It returns an
// error only when transcription fails; every other failure is folded into the
// Outcome.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	requestID := uuid.New().String()
	logger := p.logger.With("request_id", requestID, "file", req.Filename)

	logger.Info("processing call", "mime_type", req.MIMEType, "bytes", len(req.Audio))

	tr, err := p.transcriber.Transcribe(ctx, req.Audio, req.MIMEType)
	if err != nil {
		p.metrics.RecordStageError("transcription")
		p.metrics.RecordRequest("failed", time.Since(start).Seconds())
		return nil, err
	}
	p.metrics.RecordTokens("transcription", tr.InputTokens, tr.OutputTokens)

	// Tonal analysis needs only the audio, so it overlaps with the
	// transcript-dependent stages. It must not start before the
	// transcription gate: a request we reject with 500 makes no
	// further model calls.
	tonalCh := make(chan *tonal.Result, 1)
	go func() {
		tonalCh <- p.tonal.Analyze(ctx, req.Audio, req.MIMEType, req.Filename)
	}()

	res := p.resolver.Resolve(ctx, tr.Domain, tr.Category, tr.NewPair)
	if res.Err != "" {
		p.metrics.RecordStageError("synthesis")
	} else if res.Generated {
		p.metrics.RecordTokens("synthesis", res.InputTokens, res.OutputTokens)
	}

	ext := p.extractor.Extract(ctx, tr.Transcript, tr.Domain, tr.Category, res.Template)
	if ext.Err != "" {
		p.metrics.RecordStageError("extraction")
	} else {
		p.metrics.RecordTokens("extraction", ext.InputTokens, ext.OutputTokens)
	}

	tn := <-tonalCh
	if tn.Err != "" {
		p.metrics.RecordStageError("tonal")
	} else {
		p.metrics.RecordTokens("tonal", tn.InputTokens, tn.OutputTokens)
	}

	tokens := TokenUsage{
		Transcription: stageTokens(tr.InputTokens, tr.OutputTokens),
		Extraction:    stageTokens(ext.InputTokens, ext.OutputTokens),
	}
	tokens.Total = stageTokens(
		tokens.Transcription.Input+tokens.Extraction.Input,
		tokens.Transcription.Output+tokens.Extraction.Output,
	)

	outcome := &Outcome{
		RequestID:      requestID,
		Filename:       req.Filename,
		Transcript:     tr.Transcript,
		Domain:         tr.Domain,
		Category:       tr.Category,
		DomainSpecific: ext.DomainSpecific,
		Metrics:        ext.Metrics,
		ExtractionErr:  ext.Err,
		Tonal:          tn,
		Tokens:         tokens,
	}

	outcome.CallID = p.persist(ctx, logger, req, tr, ext, tn, tokens)
	p.publish(logger, outcome)

	result := "ok"
	if ext.Err != "" || tn.Err != "" {
		result = "degraded"
	}
	p.metrics.RecordRequest(result, time.Since(start).Seconds())

	logger.Info("call processed",
		"domain", tr.Domain,
		"category", tr.Category,
		"call_id", outcome.CallID,
		"result", result,
		"total_tokens", tokens.Total.Total,
		"duration", time.Since(start),
	)

	return outcome, nil
}

// persist writes the call record and, when tonal analysis succeeded, the
// tonal payload. Storage failures degrade to a log line; the caller already
// has the full analysis in hand.
func (p *Pipeline) persist(ctx context.Context, logger *slog.Logger, req Request, tr *transcriber.Result, ext *extractor.Result, tn *tonal.Result, tokens TokenUsage) int64 {
	flat := ext.Metrics.Flatten()
	row := store.GeneralRow{
		FileName:        req.Filename,
		Domain:          tr.Domain,
		Category:        tr.Category,
		AgentName:       flat.AgentName,
		CustomerName:    flat.CustomerName,
		CallDirection:   flat.CallDirection,
		InteractionType: flat.InteractionType,
		Sentiment:       flat.Sentiment,
		Intent:          flat.Intent,
		TokensInput:     tokens.Total.Input,
		TokensOutput:    tokens.Total.Output,
		TotalTokens:     tokens.Total.Total,
	}

	domainJSON, err := json.MarshalIndent(ext.DomainSpecific, "", "  ")
	if err != nil {
		logger.Error("failed to encode domain data", "error", err)
		domainJSON = []byte("{}")
	}

	callID, err := p.store.SaveCall(ctx, row, domainJSON)
	if err != nil {
		logger.Error("failed to persist call record", "error", err)
		p.metrics.RecordStageError("persistence")
	}

	if tn.Err == "" && tn.Analysis != nil {
		data, err := json.Marshal(tn.Analysis)
		if err != nil {
			logger.Error("failed to encode tonal payload", "error", err)
			return callID
		}
		if err := p.store.SaveTonal(ctx, tn.FileName, data, tn.InputTokens, tn.OutputTokens); err != nil {
			logger.Error("failed to persist tonal analysis", "error", err)
			p.metrics.RecordStageError("persistence")
		}
	}

	return callID
}

func (p *Pipeline) publish(logger *slog.Logger, outcome *Outcome) {
	if p.events == nil {
		return
	}

	flat := outcome.Metrics.Flatten()
	event := events.CallAnalyzed{
		RequestID:   outcome.RequestID,
		Filename:    outcome.Filename,
		Domain:      outcome.Domain,
		Category:    outcome.Category,
		Sentiment:   flat.Sentiment,
		TotalTokens: outcome.Tokens.Total.Total,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := p.events.Publish(events.SubjectCallAnalyzed, event); err != nil {
		logger.Error("failed to publish call analyzed event", "error", err)
	}
}
