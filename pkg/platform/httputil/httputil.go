// Package httputil holds the JSON response helpers shared by every handler.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "cpfregistry/pkg/domain-errors"
)

// ErrorResponse is the public error envelope.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const internalMessage = "internal server error"

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into a status and {type, message} envelope.
// Uncoded and internal errors never leak their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	msg := internalMessage
	if de, ok := dErrors.As(err); ok {
		code = de.Code
		msg = de.Message
	}
	status := dErrors.ToHTTPStatus(code)
	if status == http.StatusInternalServerError {
		code = dErrors.CodeInternal
		msg = internalMessage
	}
	WriteJSON(w, status, ErrorResponse{Type: string(code), Message: msg})
}

// MaxBodyBytes bounds request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// Validatable is implemented by request bodies that check themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeJSON reads a single JSON value from r into a new T. A malformed,
// oversized, or null body yields a bad_request error.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (*T, error) {
	var v *T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&v); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
	}
	if dec.More() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body")
	}
	if v == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return v, nil
}

// DecodeAndPrepare decodes the body into T and runs its Validate method when it
// has one. On failure it writes the error response, logs a warning, and returns false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req, err := DecodeJSON[T](w, r)
	if err == nil {
		if v, ok := any(req).(Validatable); ok {
			err = v.Validate()
		}
	}
	if err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "rejected request body",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
