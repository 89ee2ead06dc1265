package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/echo/internal/extractor"
	"github.com/MikeSquared-Agency/echo/internal/pipeline"
	"github.com/MikeSquared-Agency/echo/internal/tonal"
)

func uploadRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/transcribe/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func successOutcome() *pipeline.Outcome {
	metrics := &extractor.GeneralMetrics{
		Names:     extractor.NameSection{AgentName: "Sarah", CustomerName: "Tom Weaver"},
		Call:      extractor.CallSection{CallDirection: "Inbound", InteractionType: "Conversation"},
		Sentiment: extractor.SentimentSection{Sentiment: "Neutral", Intent: "check claim status"},
		Summary:   "Customer asked about a pending claim.",
		Agent:     extractor.AgentSection{EmpathyScore: 8, ProfessionalismScore: 9, KnowledgeGapDetection: []string{}},
		PII:       []string{},
	}
	return &pipeline.Outcome{
		RequestID:      "req-1",
		Filename:       "call_0045.mp3",
		Transcript:     "[00:00 - 00:45] Agent: Thank you for calling.",
		Domain:         "insurance",
		Category:       "claim_inquiry",
		DomainSpecific: map[string]any{"claim_number": "C-1041"},
		Metrics:        metrics,
		Tonal: &tonal.Result{
			FileName: "call_0045.mp3",
			Analysis: &tonal.Report{
				OverallAnalysis: tonal.OverallAnalysis{
					Summary:          "A calm claims inquiry.",
					OverallSentiment: "Neutral",
					OverallTone:      "Professional",
				},
				KeyTonalShifts: []tonal.TonalShift{},
			},
			InputTokens:  150,
			OutputTokens: 60,
		},
		Tokens: pipeline.TokenUsage{
			Transcription: pipeline.StageTokens{Input: 100, Output: 50, Total: 150},
			Extraction:    pipeline.StageTokens{Input: 200, Output: 80, Total: 280},
			Total:         pipeline.StageTokens{Input: 300, Output: 130, Total: 430},
		},
		CallID: 7,
	}
}

func postUpload(ts *testServer, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.srv.router.ServeHTTP(w, req)
	return w
}

func TestTranscribe_Success(t *testing.T) {
	ts := newTestServer(t)
	ts.processor.outcome = successOutcome()

	w := postUpload(ts, uploadRequest(t, "call_0045.mp3", "audio/mpeg", []byte("audio bytes")))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if ts.processor.lastReq.Filename != "call_0045.mp3" || ts.processor.lastReq.MIMEType != "audio/mpeg" {
		t.Errorf("request = %+v", ts.processor.lastReq)
	}
	if string(ts.processor.lastReq.Audio) != "audio bytes" {
		t.Errorf("audio = %q", ts.processor.lastReq.Audio)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body["filename"] != "call_0045.mp3" || body["domain"] != "insurance" || body["category"] != "claim_inquiry" {
		t.Errorf("identity fields = %v %v %v", body["filename"], body["domain"], body["category"])
	}
	if !strings.Contains(body["transcription"].(string), "Thank you for calling") {
		t.Errorf("transcription = %v", body["transcription"])
	}

	data := body["domain_specific_data"].(map[string]any)
	if data["claim_number"] != "C-1041" {
		t.Errorf("domain data = %v", data)
	}

	gm := body["general_metrics"].(map[string]any)
	names := gm["section_1_name_extraction"].(map[string]any)
	if names["agent_name"] != "Sarah" {
		t.Errorf("general metrics = %v", gm)
	}

	tonalSection := body["tonal_analysis"].(map[string]any)
	if tonalSection["file_name"] != "call_0045.mp3" {
		t.Errorf("tonal section = %v", tonalSection)
	}
	analysis := tonalSection["tonal_sentiment_analysis"].(map[string]any)
	overall := analysis["overall_analysis"].(map[string]any)
	if overall["overall_sentiment"] != "Neutral" {
		t.Errorf("tonal analysis = %v", analysis)
	}
	tonalTokens := tonalSection["tokens_usage"].(map[string]any)
	if tonalTokens["input_tokens"] != float64(150) || tonalTokens["output_tokens"] != float64(60) {
		t.Errorf("tonal tokens = %v", tonalTokens)
	}

	usage := body["token_usage"].(map[string]any)
	stage1 := usage["stage1_transcription_and_detection"].(map[string]any)
	stage2 := usage["stage2_combined_analysis"].(map[string]any)
	total := usage["total"].(map[string]any)
	if stage1["input"] != float64(100) || stage1["output"] != float64(50) || stage1["total"] != float64(150) {
		t.Errorf("stage1 usage = %v", stage1)
	}
	if stage2["total"] != float64(280) {
		t.Errorf("stage2 usage = %v", stage2)
	}
	if total["input"] != float64(300) || total["output"] != float64(130) || total["total"] != float64(430) {
		t.Errorf("total usage = %v", total)
	}
}

func TestTranscribe_NormalizesOctetStream(t *testing.T) {
	ts := newTestServer(t)
	ts.processor.outcome = successOutcome()

	postUpload(ts, uploadRequest(t, "recording.mp3", "application/octet-stream", []byte("x")))
	if ts.processor.lastReq.MIMEType != "audio/mpeg" {
		t.Errorf("mime = %q, want audio/mpeg", ts.processor.lastReq.MIMEType)
	}

	postUpload(ts, uploadRequest(t, "recording.m4a", "application/octet-stream", []byte("x")))
	if ts.processor.lastReq.MIMEType != "audio/mp4" {
		t.Errorf("mime = %q, want audio/mp4", ts.processor.lastReq.MIMEType)
	}

	// Unknown extension stays as-is.
	postUpload(ts, uploadRequest(t, "recording.xyz", "application/octet-stream", []byte("x")))
	if ts.processor.lastReq.MIMEType != "application/octet-stream" {
		t.Errorf("mime = %q, want application/octet-stream", ts.processor.lastReq.MIMEType)
	}
}

func TestTranscribe_MissingFile(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest("POST", "/transcribe/", strings.NewReader("no file here"))
	req.Header.Set("Content-Type", "text/plain")
	w := postUpload(ts, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if ts.processor.calls != 0 {
		t.Errorf("pipeline invoked %d times for a bad upload", ts.processor.calls)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["detail"] == "" {
		t.Error("expected detail message")
	}
}

func TestTranscribe_TranscriptionFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.processor.err = fmt.Errorf("transcription call: api error 500: INTERNAL: model overloaded")

	w := postUpload(ts, uploadRequest(t, "call.mp3", "audio/mpeg", []byte("x")))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(body["detail"], "Transcription failed: ") {
		t.Errorf("detail = %q", body["detail"])
	}
	if !strings.Contains(body["detail"], "model overloaded") {
		t.Errorf("detail should carry the cause: %q", body["detail"])
	}
}

func TestTranscribe_DegradedExtractionRendersEmptyObjects(t *testing.T) {
	ts := newTestServer(t)
	outcome := successOutcome()
	outcome.DomainSpecific = map[string]any{}
	outcome.Metrics = nil
	outcome.ExtractionErr = "api error 503: UNAVAILABLE: service unavailable"
	outcome.Tokens.Extraction = pipeline.StageTokens{}
	outcome.Tokens.Total = outcome.Tokens.Transcription
	ts.processor.outcome = outcome

	w := postUpload(ts, uploadRequest(t, "call.mp3", "audio/mpeg", []byte("x")))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	data := body["domain_specific_data"].(map[string]any)
	if len(data) != 0 {
		t.Errorf("domain data = %v, want empty object", data)
	}
	gm := body["general_metrics"].(map[string]any)
	if len(gm) != 0 {
		t.Errorf("general metrics = %v, want empty object", gm)
	}

	// Transcript and tonal sections are unaffected.
	if body["transcription"] == "" {
		t.Error("transcription missing")
	}
	tonalSection := body["tonal_analysis"].(map[string]any)
	if tonalSection["file_name"] != "call_0045.mp3" {
		t.Errorf("tonal section = %v", tonalSection)
	}

	usage := body["token_usage"].(map[string]any)
	stage2 := usage["stage2_combined_analysis"].(map[string]any)
	if stage2["total"] != float64(0) {
		t.Errorf("stage2 usage = %v, want zeros", stage2)
	}
}

func TestTranscribe_TonalFailureRendersError(t *testing.T) {
	ts := newTestServer(t)
	outcome := successOutcome()
	outcome.Tonal = &tonal.Result{
		FileName: "call_0045.mp3",
		Err:      "api error 500: INTERNAL: model overloaded",
	}
	ts.processor.outcome = outcome

	w := postUpload(ts, uploadRequest(t, "call.mp3", "audio/mpeg", []byte("x")))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	tonalSection := body["tonal_analysis"].(map[string]any)
	if tonalSection["error"] == "" || tonalSection["error"] == nil {
		t.Errorf("tonal section = %v, want error object", tonalSection)
	}
	if _, ok := tonalSection["tonal_sentiment_analysis"]; ok {
		t.Error("failed tonal analysis must not include a payload")
	}

	// The rest of the response is intact.
	gm := body["general_metrics"].(map[string]any)
	if len(gm) == 0 {
		t.Error("general metrics should be present")
	}
}
