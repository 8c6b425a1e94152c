package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/praetorian-inc/deliberate/pkg/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, events []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			fmt.Fprintf(w, "data: %s\n\n", ev)
			flusher.Flush()
		}
	}))
}

func TestGateway_CompleteCollectsDeltas(t *testing.T) {
	srv := sseServer(t, []string{
		`{"type":"content_block_delta","delta":{"text":"Hello"}}`,
		`{"type":"content_block_delta","delta":{"text":" world"}}`,
		`{"type":"message_stop"}`,
	})
	defer srv.Close()

	gw, err := NewTyped(Config{Model: "claude-3-5-sonnet-20241022", APIKey: "key", BaseURL: srv.URL, MaxTokens: 256, APIVersion: defaultAPIVersion})
	require.NoError(t, err)

	chunks, err := gw.Complete(context.Background(), "hi", "", gateway.Sampling{})
	require.NoError(t, err)

	var text string
	for c := range chunks {
		require.NoError(t, c.Err)
		text += c.Text
	}
	assert.Equal(t, "Hello world", text)
}

func TestGateway_CompleteSurfacesStreamError(t *testing.T) {
	srv := sseServer(t, []string{`{"type":"error","error":{"message":"overloaded"}}`})
	defer srv.Close()

	gw, err := NewTyped(Config{Model: "claude-3-5-sonnet-20241022", APIKey: "key", BaseURL: srv.URL, MaxTokens: 256, APIVersion: defaultAPIVersion})
	require.NoError(t, err)

	chunks, err := gw.Complete(context.Background(), "hi", "", gateway.Sampling{})
	require.NoError(t, err)

	var last gateway.Chunk
	for c := range chunks {
		last = c
	}
	assert.Error(t, last.Err)
}

func TestNewTyped_RequiresAPIKey(t *testing.T) {
	_, err := NewTyped(Config{Model: "claude-3-5-sonnet-20241022"})
	require.Error(t, err)
}
