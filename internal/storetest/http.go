package storetest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/swapify-api/internal/validation"
)

// NewApp returns a fiber app that validates request bodies like the server does
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{StructValidator: validation.New()})
}

// NewRequest builds a test request. A non-nil body is sent as JSON.
func NewRequest(t *testing.T, method, path, token string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// Do sends a request through the app and returns the status and body
func Do(t *testing.T, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()

	resp, err := app.Test(NewRequest(t, method, path, token, body))
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// Decode unmarshals a response body
func Decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

// ErrorMessage returns the "error" field of a response body
func ErrorMessage(t *testing.T, data []byte) string {
	t.Helper()
	return Decode[map[string]any](t, data)["error"].(string)
}

// Get is a shorthand for Do without a body
func Get(t *testing.T, app *fiber.App, path, token string) (int, []byte) {
	t.Helper()
	return Do(t, app, http.MethodGet, path, token, nil)
}
