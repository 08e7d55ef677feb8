package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/whisper/pkg/common/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.Host = srv.URL
	if cfg.Model == "" {
		cfg.Model = "test-model"
	}
	return NewClient(cfg, srv.Client(), logger.Noop(), noop.NewTracerProvider().Tracer("test"))
}

func respond(t *testing.T, w http.ResponseWriter, inner string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]string{"response": inner}))
}

func TestClient_ClassifyRequestShape(t *testing.T) {
	var got generateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respond(t, w, `{"is_secret": true, "reason": "Looks like a live key."}`)
	}, Config{Model: "whisper/secrets-detector:latest"})

	res := client.Classify(context.Background(), "sk_live_123", `key = "sk_live_123"`)

	assert.True(t, res.IsSecret)
	assert.Equal(t, "Looks like a live key.", res.Reason)
	assert.Equal(t, "whisper/secrets-detector:latest", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, "json", got.Format)
	assert.Contains(t, got.Prompt, `key = "sk_live_123"`)
	assert.Contains(t, got.Prompt, `Candidate Secret: "sk_live_123"`)
}

func TestClient_NilLoggerAndTracer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond(t, w, `{"is_secret": true, "reason": "live key"}`)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{Host: srv.URL, Model: "m"}, srv.Client(), nil, nil)

	res := client.Classify(context.Background(), "v", "k = v")
	assert.True(t, res.IsSecret)
	assert.Equal(t, "live key", res.Reason)
}

func TestClient_ClassifyDegradesToNotSecret(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		reason  string
	}{
		{
			name: "malformed outer body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"response": `))
			},
			reason: "malformed",
		},
		{
			name: "malformed model output",
			handler: func(w http.ResponseWriter, r *http.Request) {
				respond(t, w, `this is not json`)
			},
			reason: "malformed",
		},
		{
			name: "missing response field",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"done": true}`))
			},
			reason: "response field missing",
		},
		{
			name: "missing is_secret",
			handler: func(w http.ResponseWriter, r *http.Request) {
				respond(t, w, `{"reason": "unsure"}`)
			},
			reason: "is_secret",
		},
		{
			name: "wrong is_secret type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				respond(t, w, `{"is_secret": "yes", "reason": "x"}`)
			},
			reason: "malformed",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "model not loaded", http.StatusInternalServerError)
			},
			reason: "status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, Config{})

			res := client.Classify(context.Background(), "v", "ctx")
			assert.False(t, res.IsSecret)
			assert.NotEmpty(t, res.Reason)
			assert.Contains(t, res.Reason, tt.reason)
		})
	}
}

func TestClient_MissingReasonDefaults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, `{"is_secret": true}`)
	}, Config{})

	res, err := client.Verdict(context.Background(), "v", "ctx")
	require.NoError(t, err)
	assert.True(t, res.IsSecret)
	assert.Equal(t, noReason, res.Reason)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, Config{Timeout: 50 * time.Millisecond})
	defer close(release)

	res, err := client.Verdict(context.Background(), "v", "ctx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.False(t, res.IsSecret)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(Config{Host: url, Model: "m"}, nil, logger.Noop(), noop.NewTracerProvider().Tracer("test"))

	res := client.Classify(context.Background(), "v", "ctx")
	assert.False(t, res.IsSecret)
	assert.True(t, strings.HasPrefix(res.Reason, ErrRequestFailed.Error()))

	_, err := client.Ping(context.Background())
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestClient_Ping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/version", r.URL.Path)
		_, _ = w.Write([]byte(`{"version":"0.6.2"}`))
	}, Config{})

	v, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.6.2", v)
}

func TestClient_RateLimited(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		respond(t, w, `{"is_secret": false, "reason": "placeholder"}`)
	}, Config{RateLimit: 0.001})

	_, err := client.Verdict(context.Background(), "v", "ctx")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Verdict(ctx, "v", "ctx")
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveHost(t *testing.T) {
	tests := []struct {
		name string
		host string
		env  string
		want string
	}{
		{"explicit", "http://gpu:11434/", "", "http://gpu:11434"},
		{"from env", "", "http://env:1", "http://env:1"},
		{"env without scheme", "", "0.0.0.0:11434", "http://0.0.0.0:11434"},
		{"default", "", "", DefaultHost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OLLAMA_HOST", tt.env)
			assert.Equal(t, tt.want, ResolveHost(tt.host))
		})
	}
}
