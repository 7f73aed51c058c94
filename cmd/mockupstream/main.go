// Package main runs the mock upstream as a standalone server for demos and
// end-to-end checks of the masking proxy.
package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/sipico/payload-masker/internal/testutil/mockupstream"
)

// getPort returns the port from the PORT environment variable or the default.
func getPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}
	return port
}

// getMaskChar returns the first character of MASK_CHAR, or '*'.
func getMaskChar() rune {
	r, _ := utf8.DecodeRuneInString(os.Getenv("MASK_CHAR"))
	if r == utf8.RuneError {
		return '*'
	}
	return r
}

func createHTTPServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// setupShutdownHandler closes httpServer on SIGINT or SIGTERM.
func setupShutdownHandler(httpServer *http.Server, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info("Shutting down mock upstream")
		//nolint:errcheck
		httpServer.Close()
		close(done)
	}()
	return done
}

// doHealthCheck returns 0 if url answers 200, 1 otherwise. Used by the container
// HEALTHCHECK through the "health" subcommand.
func doHealthCheck(url string) int {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return 1
	}
	//nolint:errcheck
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "health" {
		os.Exit(doHealthCheck("http://localhost:" + getPort() + "/health"))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	port := getPort()
	server := mockupstream.NewServer(logger, getMaskChar())
	httpServer := createHTTPServer(port, server.Handler())

	done := setupShutdownHandler(httpServer, logger)

	logger.Info("Mock upstream listening", "port", port)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Mock upstream stopped")
}
