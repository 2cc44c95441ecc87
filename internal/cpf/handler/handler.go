package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cpfregistry/internal/cpf/models"
	dErrors "cpfregistry/pkg/domain-errors"
	"cpfregistry/pkg/platform/httputil"
	"cpfregistry/pkg/requestcontext"
)

// Service defines the CPF operations the handler depends on.
type Service interface {
	Register(ctx context.Context, raw string) (*models.Record, error)
	Find(ctx context.Context, raw string) (*models.Record, error)
	List(ctx context.Context) ([]*models.Record, error)
	Remove(ctx context.Context, raw string) error
}

// Handler wires CPF endpoints to the CPF service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a CPF handler.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts CPF endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/cpf", func(r chi.Router) {
		r.Post("/", h.HandleRegister)
		r.Get("/", h.HandleList)
		r.Get("/{cpf}", h.HandleFind)
		r.Delete("/{cpf}", h.HandleRemove)
	})
}

// HandleRegister handles POST /cpf.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Register(ctx, req.CPF)
	if err != nil {
		h.logFailure(ctx, "cpf registration failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "cpf registered",
		"request_id", requestID,
		"cpf", record.CPF.Masked(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, record.ToResponse())
}

// HandleList handles GET /cpf.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.service.List(ctx)
	if err != nil {
		h.logFailure(ctx, "cpf list failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponses(records))
}

// HandleFind handles GET /cpf/{cpf}.
func (h *Handler) HandleFind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	record, err := h.service.Find(ctx, chi.URLParam(r, "cpf"))
	if err != nil {
		h.logFailure(ctx, "cpf lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	if record == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeCPFNotFound, "CPF not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record.ToResponse())
}

// HandleRemove handles DELETE /cpf/{cpf}. Success has no body.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Remove(ctx, chi.URLParam(r, "cpf")); err != nil {
		h.logFailure(ctx, "cpf removal failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// logFailure logs client errors at warn and internal failures at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	requestID := requestcontext.RequestID(ctx)
	code := dErrors.CodeOf(err)
	if dErrors.ToHTTPStatus(code) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestID, "error_code", string(code))
}
