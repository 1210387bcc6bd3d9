//go:build e2e

package e2e

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/candidateparser/cmd/candidate-interop/server"
	"github.com/thesyncim/candidateparser/pkg/candidate"
	"github.com/thesyncim/candidateparser/pkg/ffi"
	"github.com/thesyncim/candidateparser/pkg/testutil"
)

// startInterop starts an interop server and a browser pointed at it.
func startInterop(t *testing.T) (*server.Server, *testutil.BrowserClient, *rod.Page) {
	t.Helper()

	srv, err := server.NewServer(server.DefaultConfig())
	require.NoError(t, err)

	addr, err := srv.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("server shutdown error: %v", err)
		}
	})

	client, err := testutil.NewBrowserClient(testutil.DefaultBrowserConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Errorf("browser close error: %v", err)
		}
	})

	// The server returns [::]:port format, we need localhost:port for Chrome
	_, port, _ := net.SplitHostPort(addr)
	page, err := client.Navigate("http://localhost:" + port)
	require.NoError(t, err)
	require.NoError(t, client.WaitStable())

	return srv, client, page
}

// TestChrome_PageLoads checks the page served by the interop server loads
// in Chrome with WebRTC available.
func TestChrome_PageLoads(t *testing.T) {
	_, _, page := startInterop(t)

	title, err := page.MustElement("title").Text()
	require.NoError(t, err)
	assert.Contains(t, title, "ICE Candidate")

	hasRTC, err := page.Eval(`() => typeof RTCPeerConnection !== 'undefined'`)
	require.NoError(t, err)
	assert.True(t, hasRTC.Value.Bool(), "RTCPeerConnection not available in browser")
}

// TestChrome_GatheredCandidatesEncode parses every candidate Chrome gathers
// and passes it through the C record layout, checking the record reads back
// exactly and that releasing it returns the heap to baseline.
func TestChrome_GatheredCandidatesEncode(t *testing.T) {
	_, client, _ := startInterop(t)

	inits, err := client.GatherCandidates()
	require.NoError(t, err)
	require.NotEmpty(t, inits, "Chrome gathered no candidates")

	allocs := ffi.NewCountingAllocator(ffi.CHeap{})
	m, err := ffi.NewMarshaller(ffi.WithAllocator(allocs))
	require.NoError(t, err)

	for _, init := range inits {
		t.Logf("candidate: %s", init.Candidate)

		want, err := candidate.ParseInit(init)
		require.NoError(t, err, init.Candidate)

		rec, err := m.Encode([]byte(init.Candidate))
		require.NoError(t, err, init.Candidate)

		got := ffi.Decode(rec)
		assert.True(t, got.Equal(&want.Candidate), "round trip of %q gave %q", init.Candidate, got.Marshal())
		assert.NotEmpty(t, got.Foundation)
		assert.Contains(t, []string{"host", "srflx", "prflx", "relay"}, got.Type)
		if got.Type != "host" {
			assert.True(t, got.HasRelated, "%s candidate without related address", got.Type)
		}

		m.Release(rec)
	}

	stats := allocs.Stats()
	assert.Zero(t, stats.Live)
	assert.Zero(t, stats.InvalidFrees)
}

// TestChrome_PagePostsCandidates drives the page UI: the browser gathers and
// posts each candidate to the server, which must parse all of them.
func TestChrome_PagePostsCandidates(t *testing.T) {
	srv, _, page := startInterop(t)

	page.MustElement("#gather").MustClick()

	err := page.Timeout(30 * time.Second).Wait(rod.Eval(`() =>
		document.getElementById('status').textContent.includes('parsed')`))
	require.NoError(t, err, "gathering did not finish")

	failed, err := page.Eval(`() => JSON.stringify(window.failed)`)
	require.NoError(t, err)
	assert.Equal(t, "[]", failed.Value.Str())

	parsed, err := page.Eval(`() => window.parsed.length`)
	require.NoError(t, err)
	assert.Positive(t, parsed.Value.Int())
	t.Logf("browser posted %d candidates", parsed.Value.Int())

	stats := srv.Allocations()
	assert.Zero(t, stats.Live)
	assert.Equal(t, stats.Allocs, stats.Frees)
}
