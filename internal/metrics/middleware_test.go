package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddleware_PassesThroughStatusAndBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
		body    string
	}{
		{
			name: "explicit status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte("created"))
			},
			status: http.StatusCreated,
			body:   "created",
		},
		{
			name: "implicit 200 on write",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("hello"))
				_, _ = w.Write([]byte(" world"))
			},
			status: http.StatusOK,
			body:   "hello world",
		},
		{
			name: "second WriteHeader ignored",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				w.WriteHeader(http.StatusInternalServerError)
			},
			status: http.StatusAccepted,
		},
		{
			name:    "nothing written",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			status:  http.StatusOK,
		},
		{
			name: "upstream failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			status: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			Middleware(tt.handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/test/user", nil))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestMiddleware_PropagatesPanic(t *testing.T) {
	t.Parallel()

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	assert.PanicsWithValue(t, "boom", func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestMiddleware_Flush(t *testing.T) {
	t.Parallel()

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("chunk"))
		f, ok := w.(http.Flusher)
		if assert.True(t, ok) {
			f.Flush()
		}
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.True(t, w.Flushed)
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/api/rules", "/api/rules"},
		{"/api/rules/12", "/api/rules/:id"},
		{"/api/rules/12/", "/api/rules/:id/"},
		{"/a/1/2/3", "/a/:id/:id/:id"},
		{"/users/4b1f0c3e-8e0a-4a43-9a59-2a1d2b3c4d5e/orders/7", "/users/:id/orders/:id"},
		{"/api/v1/items", "/api/v1/items"},
		{"/files/123abc", "/files/123abc"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}
