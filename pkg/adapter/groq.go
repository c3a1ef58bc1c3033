package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/minbar-app/minbar/pkg/transcript"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqTranscriber implements Transcriber against Groq's Whisper endpoint.
// The call goes over raw multipart HTTP: the verbose-JSON segment payload
// is not modeled by the typed SDK surfaces.
type GroqTranscriber struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGroqTranscriber creates a Groq Whisper transcriber.
func NewGroqTranscriber(apiKey, model string) (*GroqTranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq API key is required")
	}
	return &GroqTranscriber{
		apiKey:  apiKey,
		model:   model,
		baseURL: groqBaseURL,
		client:  &http.Client{},
	}, nil
}

// Name returns the adapter identifier.
func (g *GroqTranscriber) Name() string {
	return "groq"
}

type groqSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type groqResponse struct {
	Text     string        `json:"text"`
	Duration float64       `json:"duration"`
	Segments []groqSegment `json:"segments"`
}

type groqErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe sends the audio file to Groq Whisper and returns the text,
// with per-segment timestamps when requested.
func (g *GroqTranscriber) Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (*Transcription, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio"+filepath.Ext(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	_ = writer.WriteField("model", g.model)
	if opts.Timestamps {
		_ = writer.WriteField("response_format", "verbose_json")
	} else {
		_ = writer.WriteField("response_format", "json")
	}
	if opts.Language != "" {
		_ = writer.WriteField("language", opts.Language)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read groq response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody groqErrorBody
		_ = json.Unmarshal(payload, &errBody)
		return nil, &ProviderError{
			Status: resp.StatusCode,
			Detail: errBody.Error.Message,
			Err:    fmt.Errorf("groq API error %d", resp.StatusCode),
		}
	}

	var gResp groqResponse
	if err := json.Unmarshal(payload, &gResp); err != nil {
		return nil, fmt.Errorf("groq response parse error: %w", err)
	}

	out := &Transcription{
		Text:         strings.TrimSpace(gResp.Text),
		AudioSeconds: gResp.Duration,
	}
	for _, seg := range gResp.Segments {
		out.Segments = append(out.Segments, transcript.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return out, nil
}
