package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/MikeSquared-Agency/echo/internal/pipeline"
	"github.com/MikeSquared-Agency/echo/internal/tonal"
)

// maxUploadBytes bounds a single recording upload.
const maxUploadBytes = 100 << 20

// audioExtMIME resolves real audio types for clients that upload with a
// generic octet-stream content type.
var audioExtMIME = map[string]string{
	"mp3": "audio/mpeg",
	"wav": "audio/wav",
	"m4a": "audio/mp4",
}

func normalizeMediaType(header *multipart.FileHeader) string {
	mediaType := header.Header.Get("Content-Type")
	if mediaType != "application/octet-stream" {
		return mediaType
	}
	parts := strings.Split(header.Filename, ".")
	ext := strings.ToLower(parts[len(parts)-1])
	if mt, ok := audioExtMIME[ext]; ok {
		return mt
	}
	return mediaType
}

type tokenBlock struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

type tokenUsageBlock struct {
	Stage1 tokenBlock `json:"stage1_transcription_and_detection"`
	Stage2 tokenBlock `json:"stage2_combined_analysis"`
	Total  tokenBlock `json:"total"`
}

type transcribeResponse struct {
	Filename       string          `json:"filename"`
	TonalAnalysis  any             `json:"tonal_analysis"`
	Transcription  string          `json:"transcription"`
	Domain         string          `json:"domain"`
	Category       string          `json:"category"`
	DomainSpecific map[string]any  `json:"domain_specific_data"`
	GeneralMetrics any             `json:"general_metrics"`
	TokenUsage     tokenUsageBlock `json:"token_usage"`
}

func (s *Server) transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	outcome, err := s.pipeline.Process(r.Context(), pipeline.Request{
		Audio:    audio,
		MIMEType: normalizeMediaType(header),
		Filename: header.Filename,
	})
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Transcription failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, buildTranscribeResponse(outcome))
}

func buildTranscribeResponse(outcome *pipeline.Outcome) transcribeResponse {
	return transcribeResponse{
		Filename:       outcome.Filename,
		TonalAnalysis:  tonalPayload(outcome.Tonal),
		Transcription:  outcome.Transcript,
		Domain:         outcome.Domain,
		Category:       outcome.Category,
		DomainSpecific: outcome.DomainSpecific,
		GeneralMetrics: metricsPayload(outcome),
		TokenUsage: tokenUsageBlock{
			Stage1: tokenBlock(outcome.Tokens.Transcription),
			Stage2: tokenBlock(outcome.Tokens.Extraction),
			Total:  tokenBlock(outcome.Tokens.Total),
		},
	}
}

// tonalPayload renders the tonal section: the analysis with its own token
// accounting on success, a bare error object when the stage degraded.
func tonalPayload(tn *tonal.Result) any {
	if tn.Err != "" {
		return map[string]string{"error": tn.Err}
	}
	return map[string]any{
		"file_name":                tn.FileName,
		"tonal_sentiment_analysis": tn.Analysis,
		"tokens_usage": map[string]int{
			"input_tokens":  tn.InputTokens,
			"output_tokens": tn.OutputTokens,
		},
	}
}

// metricsPayload renders general metrics. A degraded extraction yields an
// empty object, which is distinguishable from a successful run whose absent
// fields were filled with placeholders.
func metricsPayload(outcome *pipeline.Outcome) any {
	if outcome.Metrics == nil {
		return map[string]any{}
	}
	return outcome.Metrics
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
