package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonn-science/firmament/internal/config"
	"github.com/canonn-science/firmament/internal/logger"
)

type received struct {
	Content string `json:"content"`
}

func captureServer(t *testing.T, got *[]received) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var msg received
		require.NoError(t, json.Unmarshal(body, &msg))
		*got = append(*got, msg)
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestNew_EmptyWebhooksReturnsNop(t *testing.T) {
	n := New(nil, logger.NewDefault())
	_, isNop := n.(Nop)
	assert.True(t, isNop)

	// Sending through Nop is a no-op.
	n.Send(context.Background(), "ignored", true)
}

func TestWebhookNotifier_SendImportant(t *testing.T) {
	var got []received
	srv := captureServer(t, &got)
	defer srv.Close()

	n := New([]config.WebhookConfig{{URL: srv.URL, Verbose: false}}, logger.NewDefault())
	n.Send(context.Background(), "Processing Missing Systems", true)

	require.Len(t, got, 1)
	assert.Equal(t, "Firmament: Processing Missing Systems", got[0].Content)
}

func TestWebhookNotifier_VerboseGating(t *testing.T) {
	var quiet, verbose []received
	quietSrv := captureServer(t, &quiet)
	defer quietSrv.Close()
	verboseSrv := captureServer(t, &verbose)
	defer verboseSrv.Close()

	n := New([]config.WebhookConfig{
		{URL: quietSrv.URL, Verbose: false},
		{URL: verboseSrv.URL, Verbose: true},
	}, logger.NewDefault())

	// Routine message: only the verbose webhook receives it.
	n.Send(context.Background(), "batch 3 complete", false)

	assert.Empty(t, quiet)
	require.Len(t, verbose, 1)
	assert.Equal(t, "Firmament: batch 3 complete", verbose[0].Content)
}

func TestWebhookNotifier_DeliveryFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := New([]config.WebhookConfig{{URL: srv.URL, Verbose: true}}, logger.NewDefault())

	// Must not panic or propagate the failure.
	n.Send(context.Background(), "hello", true)
}

func TestWebhookNotifier_UnreachableHostIsSwallowed(t *testing.T) {
	n := New([]config.WebhookConfig{{URL: "http://127.0.0.1:1", Verbose: true}}, logger.NewDefault())
	n.Send(context.Background(), "hello", true)
}
