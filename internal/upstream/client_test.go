package upstream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pixelgate/pixelgate/internal/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerateRelaysResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a red bicycle", req.Prompt)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"url":"https://img.example/1.png"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, newTestLogger())

	result, err := client.Generate(context.Background(), "sk-test", GenerateRequest{Prompt: "a red bicycle"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.JSONEq(t, `{"data":[{"url":"https://img.example/1.png"}]}`, string(result.Body))
}

func TestGenerateRelaysProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"prompt rejected"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, newTestLogger())

	// Provider-side rejections come back as results, not errors, so the
	// handler can relay and log them.
	result, err := client.Generate(context.Background(), "sk-test", GenerateRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)
}

func TestGenerateBreakerOpensOnTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // every call now fails at the transport layer

	client := NewClient(srv.URL, time.Second, newTestLogger())

	for i := 0; i < 5; i++ {
		_, err := client.Generate(context.Background(), "sk-test", GenerateRequest{Prompt: "x"})
		assert.ErrorIs(t, err, ErrUnavailable)
	}

	assert.Equal(t, circuitbreaker.StateOpen, client.BreakerState())

	// With the breaker open the client fails fast without dialing.
	_, err := client.Generate(context.Background(), "sk-test", GenerateRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTestCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer sk-good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, newTestLogger())

	assert.NoError(t, client.TestCredential(context.Background(), "sk-good"))
	assert.Error(t, client.TestCredential(context.Background(), "sk-bad"))
}
