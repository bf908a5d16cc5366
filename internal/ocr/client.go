package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	defaultEndpoint = "https://vision.googleapis.com/v1/images:annotate"
	defaultTimeout  = 30 * time.Second
	userAgent       = "bhtscan/1.0"
	textDetection   = "TEXT_DETECTION"
)

var (
	// ErrMissingAPIKey is returned when no Vision API key is configured.
	ErrMissingAPIKey = errors.New("vision API key not configured")
	// ErrNoText is returned when the image holds no recognizable text.
	ErrNoText = errors.New("no text detected in image")
)

// APIError is an error payload reported by the Vision API.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("vision API error %d", e.Code)
	}
	return fmt.Sprintf("vision API error %d: %s", e.Code, e.Message)
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.code, e.url)
}

// Client is an HTTP client for the Google Vision text detection API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	attempts   uint
	delay      time.Duration
	logger     *slog.Logger
}

// NewClient creates a Vision client for the public endpoint.
func NewClient(apiKey string) *Client {
	return NewClientWithEndpoint(defaultEndpoint, apiKey)
}

// NewClientWithEndpoint creates a client with a custom endpoint (for testing).
func NewClientWithEndpoint(endpoint, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		endpoint:   endpoint,
		apiKey:     strings.TrimSpace(apiKey),
		attempts:   3,
		delay:      500 * time.Millisecond,
		logger:     slog.Default(),
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.httpClient.Timeout = d
	}
	return c
}

// WithRetries sets how many attempts a request gets and the pause between
// them. Only transport failures, 429 and 5xx responses are retried.
func (c *Client) WithRetries(attempts uint, delay time.Duration) *Client {
	if attempts == 0 {
		attempts = 1
	}
	c.attempts = attempts
	c.delay = delay
	return c
}

// WithLogger sets the logger used for retry diagnostics.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// ExtractFile reads an image from disk and returns its text.
func (c *Client) ExtractFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	return c.ExtractText(ctx, data)
}

// ExtractText sends image bytes to the API and returns the full detected
// text. It returns ErrNoText when the image has no text annotations.
func (c *Client) ExtractText(ctx context.Context, image []byte) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if len(image) == 0 {
		return "", fmt.Errorf("reading image: empty image")
	}

	body, err := json.Marshal(AnnotateRequest{
		Requests: []ImageRequest{{
			Image:    Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []Feature{{Type: textDetection}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	var resp AnnotateResponse
	err = retry.Do(
		func() error {
			resp = AnnotateResponse{}
			return c.postAndDecode(ctx, body, &resp)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying text detection", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("detecting text: %w", err)
	}

	if resp.Error != nil {
		return "", &APIError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	if len(resp.Responses) == 0 {
		return "", ErrNoText
	}
	first := resp.Responses[0]
	if first.Error != nil {
		return "", &APIError{Code: first.Error.Code, Message: first.Error.Message}
	}
	if len(first.TextAnnotations) == 0 {
		return "", ErrNoText
	}

	text := first.TextAnnotations[0].Description
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

func (c *Client) postAndDecode(ctx context.Context, body []byte, out *AnnotateResponse) error {
	reqURL := c.endpoint + "?" + url.Values{"key": {c.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload AnnotateResponse
		if derr := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); derr == nil && payload.Error != nil {
			return &APIError{Code: resp.StatusCode, Message: payload.Error.Message}
		}
		return &statusError{code: resp.StatusCode, url: c.endpoint}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}
