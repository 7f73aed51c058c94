package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sipico/payload-masker/internal/testutil/mockupstream"
)

func TestGetPort(t *testing.T) {
	tests := []struct {
		name     string
		port     string
		expected string
	}{
		{"default port when not set", "", "8082"},
		{"custom port", "9000", "9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", tt.port)
			assert.Equal(t, tt.expected, getPort())
		})
	}
}

func TestGetMaskChar(t *testing.T) {
	tests := []struct {
		value    string
		expected rune
	}{
		{"", '*'},
		{"#", '#'},
		{"•x", '•'},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("MASK_CHAR", tt.value)
			assert.Equal(t, tt.expected, getMaskChar())
		})
	}
}

func TestCreateHTTPServer(t *testing.T) {
	t.Parallel()

	handler := mockupstream.NewServer(nil, '*').Handler()
	httpServer := createHTTPServer("8082", handler)

	assert.Equal(t, ":8082", httpServer.Addr)
	assert.NotNil(t, httpServer.Handler)
	assert.NotZero(t, httpServer.ReadHeaderTimeout)
}

func TestDoHealthCheck(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(mockupstream.NewServer(nil, '*').Handler())
	defer healthy.Close()
	assert.Equal(t, 0, doHealthCheck(healthy.URL+"/health"))

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	assert.Equal(t, 1, doHealthCheck(failing.URL))

	assert.Equal(t, 1, doHealthCheck("http://127.0.0.1:1/health"))
}
