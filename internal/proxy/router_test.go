package proxy

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipico/payload-masker/internal/masking"
	"github.com/sipico/payload-masker/internal/middleware"
)

// syncBuffer guards a log buffer written from server goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) records(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func intPtr(n int) *int { return &n }

func newTestMasker(t *testing.T) *masking.Masker {
	t.Helper()
	reg, err := masking.NewRegistry([]masking.FieldConfig{
		{FieldName: "password", MaskAll: true},
		{FieldName: "cardNumber", MaskStartIndex: intPtr(4), MaskEndIndex: intPtr(12)},
	})
	require.NoError(t, err)
	return masking.NewMasker(reg, '*')
}

// echoUpstream returns the request body it received as its JSON response and
// records it.
func echoUpstream(t *testing.T, received *string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		*received = string(b)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, upstreamURL string, logs io.Writer, opts RouterOptions) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h, err := NewHandler(upstreamURL, logger)
	require.NoError(t, err)
	return NewRouter(h, newTestMasker(t), opts, logger)
}

func loggingOn() middleware.LoggingOptions {
	return middleware.LoggingOptions{
		Level:          slog.LevelInfo,
		LogRequests:    true,
		LogResponses:   true,
		MaskingEnabled: true,
	}
}

const payload = `{"login":"bob","password":"hunter2","cardNumber":"4111111111111111"}`

func TestRouter_LogsMaskedForwardsOriginal(t *testing.T) {
	t.Parallel()

	var received string
	upstream := echoUpstream(t, &received)
	logs := &syncBuffer{}
	router := newTestRouter(t, upstream.URL, logs, RouterOptions{Logging: loggingOn()})

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, received, "upstream sees the original body")
	assert.Equal(t, payload, w.Body.String(), "client sees the original body")
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	masked := `{"login":"bob","password":"*******","cardNumber":"4111********1111"}`
	var sawRequest, sawResponse bool
	for _, rec := range logs.records(t) {
		switch rec["msg"] {
		case "HTTP Request":
			sawRequest = true
			assert.Equal(t, masked, rec["body"])
		case "HTTP Response":
			sawResponse = true
			assert.Equal(t, masked, rec["body"])
		}
	}
	assert.True(t, sawRequest)
	assert.True(t, sawResponse)
}

func TestRouter_MaskForwardedBodies(t *testing.T) {
	t.Parallel()

	var received string
	upstream := echoUpstream(t, &received)
	router := newTestRouter(t, upstream.URL, io.Discard, RouterOptions{
		Logging:       loggingOn(),
		MaskForwarded: true,
		Bodies:        middleware.BodyOptions{Requests: true, Responses: true},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	masked := `{"login":"bob","password":"*******","cardNumber":"4111********1111"}`
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, masked, received)
	assert.Equal(t, masked, w.Body.String())
}

func TestRouter_RejectsOversizedBody(t *testing.T) {
	t.Parallel()

	var received string
	upstream := echoUpstream(t, &received)
	router := newTestRouter(t, upstream.URL, io.Discard, RouterOptions{MaxRequestBytes: 8})

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, received)
}

func TestRouter_NonJSONPassesThrough(t *testing.T) {
	t.Parallel()

	var received string
	upstream := echoUpstream(t, &received)
	router := newTestRouter(t, upstream.URL, io.Discard, RouterOptions{
		Logging:       loggingOn(),
		MaskForwarded: true,
		Bodies:        middleware.BodyOptions{Requests: true, Responses: true},
	})

	body := "password=hunter2"
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, body, received)
}
