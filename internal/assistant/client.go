// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/vakil/internal/logging"
	"github.com/jeranaias/vakil/internal/util"
)

// Configuration constants for the assistant API.
const (
	// DefaultBaseURL is where the service listens in a local deployment.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 120 * time.Second

	// DefaultRatePerSecond is the steady-state outbound request rate.
	DefaultRatePerSecond = 5.0

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024

	// maxDetailRunes caps how much of a non-JSON error body is kept.
	maxDetailRunes = 200
)

// Endpoint paths.
const (
	pathAsk             = "/ask"
	pathGenerate        = "/generate-document"
	pathUpload          = "/upload"
	pathStartRecording  = "/start-recording"
	pathStopRecording   = "/stop-recording"
	pathTextToSpeech    = "/text-to-speech"
	pathSpeechLanguages = "/speech-languages"
)

// =============================================================================
// CLIENT
// =============================================================================

// Client is the HTTP implementation of Service. Requests are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

var _ Service = (*Client)(nil)

// NewClient creates a client for baseURL with default timeout and rate.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRatePerSecond), 1),
		logger:  zap.NewNop(),
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithRateLimit sets the outbound request rate. A non-positive rate
// disables limiting.
func (c *Client) WithRateLimit(perSecond float64) *Client {
	if perSecond <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return c
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(l *zap.Logger) *Client {
	c.logger = logging.OrNop(l).Named("assistant")
	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Ask implements Service.
func (c *Client) Ask(ctx context.Context, query string) (string, error) {
	var out struct {
		Response *string `json:"response"`
	}
	if err := c.postJSON(ctx, pathAsk, map[string]string{"query": query}, &out); err != nil {
		return "", err
	}
	if out.Response == nil {
		return "", malformed(pathAsk, "missing response")
	}
	return *out.Response, nil
}

// GenerateDocument implements Service.
func (c *Client) GenerateDocument(ctx context.Context, description, preferredType string) (string, error) {
	body := struct {
		Description   string  `json:"description"`
		PreferredType *string `json:"preferred_type"`
	}{Description: description}
	if preferredType != "" {
		body.PreferredType = &preferredType
	}

	var out struct {
		Content *string `json:"content"`
	}
	if err := c.postJSON(ctx, pathGenerate, body, &out); err != nil {
		return "", err
	}
	if out.Content == nil {
		return "", malformed(pathGenerate, "missing content")
	}
	return *out.Content, nil
}

// Upload implements Service. The document is sent as the multipart field
// "file".
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read upload %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finish multipart body: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, pathUpload, mw.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}

	var out struct {
		Response *string `json:"response"`
	}
	if err := decode(pathUpload, data, &out); err != nil {
		return "", err
	}
	if out.Response == nil {
		return "", malformed(pathUpload, "missing response")
	}
	return *out.Response, nil
}

// StartCapture implements Service.
func (c *Client) StartCapture(ctx context.Context) (bool, error) {
	var out struct {
		Success *bool `json:"success"`
	}
	if err := c.postJSON(ctx, pathStartRecording, nil, &out); err != nil {
		return false, err
	}
	if out.Success == nil {
		return false, malformed(pathStartRecording, "missing success")
	}
	return *out.Success, nil
}

// StopCapture implements Service. Missing or failed transcription fields
// yield OK=false rather than an error.
func (c *Client) StopCapture(ctx context.Context) (Transcription, error) {
	var out struct {
		Success       bool `json:"success"`
		Transcription *struct {
			Success       bool    `json:"success"`
			Transcription *string `json:"transcription"`
		} `json:"transcription"`
	}
	if err := c.postJSON(ctx, pathStopRecording, nil, &out); err != nil {
		return Transcription{}, err
	}

	t := out.Transcription
	if !out.Success || t == nil || !t.Success || t.Transcription == nil {
		c.logger.Debug("stop-recording returned no transcript", zap.Bool("success", out.Success))
		return Transcription{}, nil
	}
	return Transcription{Text: *t.Transcription, OK: true}, nil
}

// SynthesizeSpeech implements Service. The response body is ignored.
func (c *Client) SynthesizeSpeech(ctx context.Context, text string) error {
	body := struct {
		Text      string `json:"text"`
		SaveAudio bool   `json:"save_audio"`
	}{Text: text}
	return c.postJSON(ctx, pathTextToSpeech, body, nil)
}

// Language is a speech language offered by the server.
type Language struct {
	Code string
	Name string
}

// SpeechLanguages lists the languages the server can transcribe and speak,
// sorted by code.
func (c *Client) SpeechLanguages(ctx context.Context) ([]Language, error) {
	data, err := c.do(ctx, http.MethodGet, pathSpeechLanguages, "", nil)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Languages map[string]string `json:"languages"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil || wrapped.Languages == nil {
		// Some deployments return the map at the top level.
		var flat map[string]string
		if err := json.Unmarshal(data, &flat); err != nil {
			return nil, malformed(pathSpeechLanguages, "expected language map")
		}
		wrapped.Languages = flat
	}

	langs := make([]Language, 0, len(wrapped.Languages))
	for code, name := range wrapped.Languages {
		langs = append(langs, Language{Code: code, Name: name})
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].Code < langs[j].Code })
	return langs, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	data, err := c.do(ctx, http.MethodPost, path, contentType, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(path, data, out)
}

// do performs one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	c.logger.Debug("request complete",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFromResponse(path, resp.StatusCode, data)
	}
	return data, nil
}

// readResponse reads at most MaxResponseSize bytes.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeds %d bytes", MaxResponseSize)
	}
	return data, nil
}

// errorFromResponse builds an APIError, pulling FastAPI's "detail" field
// when present.
func errorFromResponse(path string, status int, body []byte) error {
	apiErr := &APIError{Endpoint: path, Status: status}

	var parsed struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != nil {
		if s, ok := parsed.Detail.(string); ok {
			apiErr.Detail = s
		} else if b, err := json.Marshal(parsed.Detail); err == nil {
			apiErr.Detail = string(b)
		}
	} else {
		apiErr.Detail = util.TruncateRunes(strings.TrimSpace(string(body)), maxDetailRunes)
	}
	return apiErr
}

func decode(path string, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return malformed(path, err.Error())
	}
	return nil
}
