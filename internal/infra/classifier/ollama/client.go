// Package ollama classifies candidate secrets with a model served by an
// Ollama compatible inference endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/whisper/internal/domain/detection"
	"github.com/ahrav/whisper/pkg/common"
	"github.com/ahrav/whisper/pkg/common/logger"
)

const (
	// DefaultHost is used when neither the configuration nor OLLAMA_HOST
	// names an endpoint.
	DefaultHost = "http://localhost:11434"
	// DefaultTimeout bounds a single classification call.
	DefaultTimeout = 30 * time.Second

	pingTimeout     = 5 * time.Second
	maxResponseSize = 1 << 20
	noReason        = "No reason provided by model."
)

var (
	// ErrRequestFailed wraps transport failures and non-2xx responses.
	ErrRequestFailed = errors.New("inference request failed")
	// ErrMalformedResponse wraps responses that do not follow the expected
	// JSON shape.
	ErrMalformedResponse = errors.New("malformed inference response")
)

// Config configures the client.
type Config struct {
	// Host is the base URL. Empty falls back to OLLAMA_HOST, then DefaultHost.
	Host    string
	Model   string
	Timeout time.Duration
	// RateLimit caps classification requests per second. Zero is unlimited.
	RateLimit float64
}

// Client implements detection.Classifier against POST {host}/api/generate.
type Client struct {
	generateURL string
	versionURL  string
	model       string
	timeout     time.Duration

	httpClient  *http.Client
	rateLimiter *common.RateLimiter

	logger *logger.Logger
	tracer trace.Tracer
}

var _ detection.Classifier = (*Client)(nil)

// NewClient creates a client. A nil httpClient is replaced by one whose
// transport is instrumented with otelhttp.
func NewClient(cfg Config, httpClient *http.Client, log *logger.Logger, tracer trace.Tracer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if log == nil {
		log = logger.Noop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("ollama_client")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	host := ResolveHost(cfg.Host)
	return &Client{
		generateURL: host + "/api/generate",
		versionURL:  host + "/api/version",
		model:       cfg.Model,
		timeout:     timeout,
		httpClient:  httpClient,
		rateLimiter: common.NewRateLimiter(cfg.RateLimit, 1),
		logger:      log.With("component", "ollama_client"),
		tracer:      tracer,
	}
}

// ResolveHost returns the endpoint base URL without a trailing slash. A host
// without a scheme is assumed to be plain HTTP.
func ResolveHost(host string) string {
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type generateResponse struct {
	Response *string `json:"response"`
}

type verdict struct {
	IsSecret *bool   `json:"is_secret"`
	Reason   *string `json:"reason"`
}

// Classify implements detection.Classifier. Failures of any kind degrade to
// a negative verdict whose reason describes the failure.
func (c *Client) Classify(ctx context.Context, value, snippet string) detection.ClassificationResult {
	result, err := c.Verdict(ctx, value, snippet)
	if err != nil {
		c.logger.Warn(ctx, "classification failed", "error", err)
		return detection.NotSecret(err.Error())
	}
	return result
}

// Verdict asks the model whether value is a real secret given the surrounding
// snippet. Unlike Classify it reports failures as errors.
func (c *Client) Verdict(ctx context.Context, value, snippet string) (detection.ClassificationResult, error) {
	ctx, span := c.tracer.Start(ctx, "ollama_client.classify",
		trace.WithAttributes(
			attribute.String("model", c.model),
			attribute.Int("candidate_length", len(value)),
		))
	defer span.End()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limiter wait failed")
		return detection.ClassificationResult{}, fmt.Errorf("%w: rate limiter wait failed: %v", ErrRequestFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: buildPrompt(value, snippet),
		Stream: false,
		Format: "json",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal request")
		return detection.ClassificationResult{}, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateURL, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return detection.ClassificationResult{}, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return detection.ClassificationResult{}, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(data)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-2xx response")
		return detection.ClassificationResult{}, err
	}

	result, err := decodeVerdict(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode response")
		return detection.ClassificationResult{}, err
	}

	span.SetAttributes(attribute.Bool("is_secret", result.IsSecret))
	return result, nil
}

// decodeVerdict reads the outer generate response and the model's JSON
// verdict embedded in its "response" string.
func decodeVerdict(r io.Reader) (detection.ClassificationResult, error) {
	var outer generateResponse
	if err := json.NewDecoder(r).Decode(&outer); err != nil {
		return detection.ClassificationResult{}, fmt.Errorf("%w: failed to decode response body: %v", ErrMalformedResponse, err)
	}
	if outer.Response == nil {
		return detection.ClassificationResult{}, fmt.Errorf("%w: response field missing", ErrMalformedResponse)
	}

	var v verdict
	if err := json.Unmarshal([]byte(*outer.Response), &v); err != nil {
		return detection.ClassificationResult{}, fmt.Errorf("%w: failed to decode model output: %v", ErrMalformedResponse, err)
	}
	if v.IsSecret == nil {
		return detection.ClassificationResult{}, fmt.Errorf("%w: model output lacks is_secret", ErrMalformedResponse)
	}

	reason := noReason
	if v.Reason != nil && strings.TrimSpace(*v.Reason) != "" {
		reason = *v.Reason
	}
	return detection.ClassificationResult{IsSecret: *v.IsSecret, Reason: reason}, nil
}

// Ping checks that the endpoint answers GET {host}/api/version and returns
// the reported server version.
func (c *Client) Ping(ctx context.Context) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ollama_client.ping")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.versionURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ping failed")
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-200 response")
		return "", err
	}

	var body struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return body.Version, nil
}
