package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDebuggerURLPassesWebsocketsThrough(t *testing.T) {
	t.Parallel()

	for _, address := range []string{
		"ws://127.0.0.1:9222/devtools/browser/7a3c",
		"wss://browser.example.com/devtools/browser/7a3c",
	} {
		got, err := ResolveDebuggerURL(context.Background(), address)
		require.NoError(t, err)
		assert.Equal(t, address, got)
	}
}

func TestResolveDebuggerURLAsksVersionEndpoint(t *testing.T) {
	t.Parallel()

	const wsURL = "ws://127.0.0.1:9222/devtools/browser/53c1dcb0"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/version", r.URL.Path)
		fmt.Fprintf(w, `{"Browser":"Chrome/120.0.6099.109","Protocol-Version":"1.3","webSocketDebuggerUrl":%q}`, wsURL)
	}))
	defer srv.Close()

	for _, address := range []string{srv.URL, srv.URL + "/"} {
		got, err := ResolveDebuggerURL(context.Background(), address)
		require.NoError(t, err)
		assert.Equal(t, wsURL, got)
	}
}

func TestResolveDebuggerURLErrors(t *testing.T) {
	t.Parallel()

	t.Run("endpoint missing", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := ResolveDebuggerURL(context.Background(), srv.URL)
		require.ErrorContains(t, err, "version probe")
	})

	t.Run("no debugger url advertised", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"Browser":"Chrome/120.0.6099.109"}`)
		}))
		defer srv.Close()

		_, err := ResolveDebuggerURL(context.Background(), srv.URL)
		require.ErrorContains(t, err, "did not advertise")
	})

	t.Run("browser unreachable", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		_, err := ResolveDebuggerURL(context.Background(), srv.URL)
		require.ErrorContains(t, err, "could not reach")
	})
}
