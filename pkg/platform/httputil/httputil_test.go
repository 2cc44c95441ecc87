package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "cpfregistry/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error hides message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "failed to insert CPF"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["type"] != "internal_error" {
			t.Fatalf("expected type internal_error, got %q", body["type"])
		}
		if body["message"] != "internal server error" {
			t.Fatalf("expected generic message, got %q", body["message"])
		}
	})

	t.Run("uncoded error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})

	t.Run("invalid cpf includes message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvalidCPF, "CPF is not valid"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["type"] != "invalid_cpf" {
			t.Fatalf("expected type invalid_cpf, got %q", body["type"])
		}
		if body["message"] != "CPF is not valid" {
			t.Fatalf("expected message to be returned for invalid cpf, got %q", body["message"])
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("expected application/json, got %q", ct)
		}
	})
}

type nameRequest struct {
	Name string `json:"name"`
}

func (r *nameRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	decode := func(body string) (*nameRequest, bool, *httptest.ResponseRecorder) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req, ok := DecodeAndPrepare[nameRequest](w, r, nil, r.Context(), "req-1")
		return req, ok, w
	}

	t.Run("valid body", func(t *testing.T) {
		req, ok, _ := decode(`{"name":"ana"}`)
		if !ok || req.Name != "ana" {
			t.Fatalf("expected decoded request, got ok=%v req=%+v", ok, req)
		}
	})

	t.Run("malformed json is bad request", func(t *testing.T) {
		_, ok, w := decode(`{"name":`)
		if ok {
			t.Fatalf("expected decode failure")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"type":"bad_request"`) {
			t.Fatalf("expected bad_request envelope, got %s", w.Body.String())
		}
	})

	t.Run("trailing data is rejected", func(t *testing.T) {
		_, ok, w := decode(`{"name":"ana"} {"name":"bia"}`)
		if ok || w.Code != http.StatusBadRequest {
			t.Fatalf("expected bad request, got ok=%v status=%d", ok, w.Code)
		}
	})

	t.Run("null body is bad request", func(t *testing.T) {
		_, ok, w := decode(`null`)
		if ok || w.Code != http.StatusBadRequest {
			t.Fatalf("expected bad request, got ok=%v status=%d", ok, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"type":"bad_request"`) ||
			!strings.Contains(w.Body.String(), "request body is required") {
			t.Fatalf("expected bad_request envelope, got %s", w.Body.String())
		}
	})

	t.Run("validation failure is written", func(t *testing.T) {
		_, ok, w := decode(`{}`)
		if ok {
			t.Fatalf("expected validation failure")
		}
		if !strings.Contains(w.Body.String(), "name is required") {
			t.Fatalf("expected validation message, got %s", w.Body.String())
		}
	})
}
