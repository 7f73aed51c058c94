package mockupstream

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *bytes.Buffer, string) {
	t.Helper()
	var logs bytes.Buffer
	srv := NewServer(slog.New(slog.NewJSONHandler(&logs, nil)), '*')
	ts := srv.Start()
	t.Cleanup(ts.Close)
	return srv, &logs, ts.URL
}

// loggedDTO finds the first log record with msg and decodes the JSON string held
// in its key attribute.
func loggedDTO(t *testing.T, logs *bytes.Buffer, msg, key string) map[string]any {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["msg"] != msg {
			continue
		}
		s, ok := rec[key].(string)
		require.True(t, ok, "attribute %q is not a string: %v", key, rec[key])
		var dto map[string]any
		require.NoError(t, json.Unmarshal([]byte(s), &dto))
		return dto
	}
	t.Fatalf("no log record %q in %s", msg, logs.String())
	return nil
}

func TestGetUser_LogsMaskedReturnsPlain(t *testing.T) {
	t.Parallel()
	_, logs, url := newTestServer(t)

	resp, err := http.Get(url + "/api/test/user")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))

	var got UserDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, SampleUser("123"), got)

	logged := loggedDTO(t, logs, "User DTO served", "user")
	assert.Equal(t, "123", logged["id"])
	assert.Equal(t, "Иван", logged["name"])
	assert.Equal(t, "********90123", logged["inn"])
	assert.Equal(t, "1234***890", logged["num"])
	assert.Equal(t, "#########", logged["epkId"])
	assert.Equal(t, "*ван", logged["firstName"])
	assert.Equal(t, "*#X*#X", logged["lastName"])
}

func TestGetUser_CustomID(t *testing.T) {
	t.Parallel()
	_, _, url := newTestServer(t)

	resp, err := http.Get(url + "/api/test/user?id=42")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got UserDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "42", got.ID)
}

func TestGetPayment_LogsMaskedReturnsPlain(t *testing.T) {
	t.Parallel()
	_, logs, url := newTestServer(t)

	resp, err := http.Get(url + "/api/test/payment")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got PaymentDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, SamplePayment("PAY-001", 1000), got)

	logged := loggedDTO(t, logs, "Payment DTO served", "payment")
	assert.Equal(t, "PAY-001", logged["paymentId"])
	assert.InDelta(t, 1000.0, logged["amount"], 0)
	assert.Equal(t, "*#*#*#*#*#123", logged["inn"])
	assert.Equal(t, "123XXXX890", logged["transactionNum"])
	assert.Equal(t, "*********", logged["epkId"])
	assert.Equal(t, "..ан", logged["payerName"])
	assert.Equal(t, "••••••", logged["payerSurname"])
}

func TestCreateUser(t *testing.T) {
	t.Parallel()
	srv, logs, url := newTestServer(t)

	body := `{"id":"7","name":"Anna","inn":"9876543210","num":"5555666677","epkId":"EPK7","firstName":"Anna","lastName":"Smith"}`
	resp, err := http.Post(url+"/api/users", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(got))

	users := srv.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "Smith", users[0].LastName)

	logged := loggedDTO(t, logs, "User created", "user")
	assert.Equal(t, "********10", logged["inn"])
	assert.Equal(t, "*nna", logged["firstName"])

	listResp, err := http.Get(url + "/api/users")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var list []UserDTO
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	assert.Equal(t, users, list)
}

func TestCreateUser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid json", `{"id":`, "Invalid JSON"},
		{"missing id", `{"name":"Anna"}`, "id is required"},
		{"blank id", `{"id":"  "}`, "id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, _, url := newTestServer(t)

			resp, err := http.Post(url+"/api/users", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var errResp ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
			assert.Equal(t, "invalid_request", errResp.Error)
			assert.Equal(t, tt.message, errResp.Message)
			assert.Empty(t, srv.Users())
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	_, _, url := newTestServer(t)

	resp, err := http.Get(url + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestNewServer_NilLogger(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, '*')
	assert.NotNil(t, srv.logger)
	assert.NotNil(t, srv.Handler())
}
