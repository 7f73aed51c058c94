package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_GeneratesUUID(t *testing.T) {
	t.Parallel()

	var ctxID, fwdID string
	mw := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
		fwdID = r.Header.Get(RequestIDHeader)
	}))

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	_, err := uuid.Parse(ctxID)
	require.NoError(t, err)
	assert.Equal(t, ctxID, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, ctxID, fwdID, "generated ID is forwarded upstream")
}

func TestRequestID_CallerSuppliedID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		keep bool
	}{
		{"simple", "test-request-id-12345", true},
		{"dots and underscores", "svc_a.req-1", true},
		{"max length", strings.Repeat("a", 128), true},
		{"too long", strings.Repeat("a", 129), false},
		{"spaces", "bad id", false},
		{"log injection", "id\nlevel=ERROR", false},
		{"unicode", "идентификатор", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got string
			mw := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.id != "" {
				req.Header[RequestIDHeader] = []string{tt.id}
			}
			mw.ServeHTTP(httptest.NewRecorder(), req)

			if tt.keep {
				assert.Equal(t, tt.id, got)
			} else {
				assert.NotEqual(t, tt.id, got)
				_, err := uuid.Parse(got)
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	t.Parallel()

	ids := make(map[string]bool)
	mw := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids[GetRequestID(r.Context())] = true
	}))
	for i := 0; i < 50; i++ {
		mw.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.Len(t, ids, 50)
}

func TestGetRequestID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetRequestID(context.Background()))
	assert.Equal(t, "abc", GetRequestID(WithRequestID(context.Background(), "abc")))
}
