package mockupstream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/sipico/payload-masker/internal/logging"
)

// Server is the mock upstream: an in-memory user store behind a chi router.
type Server struct {
	logger      *slog.Logger
	defaultChar rune

	mu    sync.Mutex
	users []UserDTO
}

// NewServer creates a mock upstream. DTOs are logged through logging.Masked with
// defaultChar; a nil logger uses slog.Default().
func NewServer(logger *slog.Logger, defaultChar rune) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger, defaultChar: defaultChar}
}

// Handler returns the HTTP handler of the mock upstream.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/api/test/user", s.handleGetUser)
	r.Get("/api/test/payment", s.handleGetPayment)
	r.Get("/api/users", s.handleListUsers)
	r.Post("/api/users", s.handleCreateUser)

	return r
}

// Users returns the users created through POST /api/users.
func (s *Server) Users() []UserDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UserDTO(nil), s.users...)
}

// Start serves s on a new httptest server.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		id = "123"
	}
	user := SampleUser(id)
	s.logger.Info("User DTO served", "user", logging.Masked(user, s.defaultChar))
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, _ *http.Request) {
	payment := SamplePayment("PAY-001", 1000)
	s.logger.Info("Payment DTO served", "payment", logging.Masked(payment, s.defaultChar))
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Users())
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var user UserDTO
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "Invalid JSON"})
		return
	}
	if strings.TrimSpace(user.ID) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "id is required"})
		return
	}

	s.mu.Lock()
	s.users = append(s.users, user)
	s.mu.Unlock()

	s.logger.Info("User created", "user", logging.Masked(user, s.defaultChar))
	writeJSON(w, http.StatusCreated, user)
}

// writeJSON writes a JSON response with correct Content-Type and no trailing newline.
func writeJSON(w http.ResponseWriter, status int, v any) {
	//nolint:errcheck
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck
	w.Write(data)
}
