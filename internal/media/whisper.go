package media

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
	"time"
)

// WhisperClient is a Transcriber backed by a whisper.cpp-compatible HTTP
// server (POST /inference with a multipart audio file).
type WhisperClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewWhisperClient creates a transcription client for the given server.
func NewWhisperClient(baseURL string) *WhisperClient {
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	return &WhisperClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Transcribe uploads the referenced audio file and returns its transcription.
// On any failure it returns the placeholder string together with the error so
// callers can both log the failure and keep a usable transcript.
func (c *WhisperClient) Transcribe(ctx context.Context, audioRef string) (string, error) {
	audio, err := os.ReadFile(audioRef) // #nosec G304 - path supplied by the request
	if err != nil {
		return TranscriptionUnavailable, fmt.Errorf("read audio: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioRef))
	if err != nil {
		return TranscriptionUnavailable, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return TranscriptionUnavailable, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return TranscriptionUnavailable, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/inference", &body)
	if err != nil {
		return TranscriptionUnavailable, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TranscriptionUnavailable, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return TranscriptionUnavailable, fmt.Errorf("whisper error (status %d): %s", resp.StatusCode, string(msg))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return TranscriptionUnavailable, fmt.Errorf("decode response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return TranscriptionUnavailable, nil
	}
	return text, nil
}

// IdentifyLanguage asks the server for the detected language of the
// referenced audio file (ISO 639-1 code).
func (c *WhisperClient) IdentifyLanguage(ctx context.Context, audioRef string) (string, error) {
	audio, err := os.ReadFile(audioRef) // #nosec G304 - path supplied by the request
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioRef))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect-language", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return "", fmt.Errorf("whisper error (status %d): %s", resp.StatusCode, string(msg))
	}

	var result struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return strings.TrimSpace(result.Language), nil
}
