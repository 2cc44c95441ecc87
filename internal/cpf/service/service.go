package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	cpfmetrics "cpfregistry/internal/cpf/metrics"
	"cpfregistry/internal/cpf/models"
	id "cpfregistry/pkg/domain"
	dErrors "cpfregistry/pkg/domain-errors"
	"cpfregistry/pkg/platform/sentinel"
	"cpfregistry/pkg/requestcontext"
)

// Store is the persistence port. Implementations return sentinel.ErrNotFound
// for absent records and sentinel.ErrAlreadyUsed for uniqueness violations.
type Store interface {
	Insert(ctx context.Context, cpf id.CPF) (*models.Record, error)
	FindByCPF(ctx context.Context, cpf id.CPF) (*models.Record, error)
	ListAll(ctx context.Context) ([]*models.Record, error)
	Delete(ctx context.Context, cpf id.CPF) error
}

const (
	eventCPFRegistered = "cpf_registered"
	eventCPFRemoved    = "cpf_removed"
)

// Service orchestrates CPF registration, lookup, listing, and removal.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *cpfmetrics.Metrics
	tracer  trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *cpfmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New constructs a Service. A store is required.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("cpf store is required")
	}
	s := &Service{
		store:  store,
		tracer: otel.Tracer("cpfregistry/internal/cpf/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register validates raw, rejects duplicates, and persists the normalized CPF.
// Validation always runs before the store is consulted.
func (s *Service) Register(ctx context.Context, raw string) (_ *models.Record, err error) {
	ctx, end := s.startSpan(ctx, "Register")
	defer func() { end(err) }()
	defer s.metrics.ObserveOperation("register", time.Now())

	cpf, err := s.parse(raw)
	if err != nil {
		return nil, err
	}

	_, err = s.store.FindByCPF(ctx, cpf)
	switch {
	case err == nil:
		s.metrics.IncrementRejected("duplicate")
		return nil, errDuplicate()
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up CPF")
	}

	record, err := s.store.Insert(ctx, cpf)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.metrics.IncrementRejected("duplicate")
			return nil, errDuplicate()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register CPF")
	}

	s.logAudit(ctx, eventCPFRegistered, "cpf", cpf.Masked())
	s.metrics.IncrementRegistered()
	return record, nil
}

// Find returns the record for raw, or (nil, nil) when no record exists.
func (s *Service) Find(ctx context.Context, raw string) (_ *models.Record, err error) {
	ctx, end := s.startSpan(ctx, "Find")
	defer func() { end(err) }()
	defer s.metrics.ObserveOperation("find", time.Now())

	cpf, err := s.parse(raw)
	if err != nil {
		return nil, err
	}

	record, err := s.store.FindByCPF(ctx, cpf)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up CPF")
	}
	return record, nil
}

// List returns every record in insertion order.
func (s *Service) List(ctx context.Context) (_ []*models.Record, err error) {
	ctx, end := s.startSpan(ctx, "List")
	defer func() { end(err) }()
	defer s.metrics.ObserveOperation("list", time.Now())

	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list CPFs")
	}
	return records, nil
}

// Remove deletes the record for raw. Removing an absent CPF fails with
// cpf_not_found and never reaches the store's delete.
func (s *Service) Remove(ctx context.Context, raw string) (err error) {
	ctx, end := s.startSpan(ctx, "Remove")
	defer func() { end(err) }()
	defer s.metrics.ObserveOperation("remove", time.Now())

	cpf, err := s.parse(raw)
	if err != nil {
		return err
	}

	if _, err := s.store.FindByCPF(ctx, cpf); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementRejected("not_found")
			return errNotFound()
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up CPF")
	}

	if err := s.store.Delete(ctx, cpf); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementRejected("not_found")
			return errNotFound()
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove CPF")
	}

	s.logAudit(ctx, eventCPFRemoved, "cpf", cpf.Masked())
	s.metrics.IncrementRemoved()
	return nil
}

func (s *Service) parse(raw string) (id.CPF, error) {
	cpf, err := id.ParseCPF(raw)
	if err != nil {
		s.metrics.IncrementRejected("invalid")
		return "", err
	}
	return cpf, nil
}

func errDuplicate() error {
	return dErrors.New(dErrors.CodeCPFExists, "CPF already exists")
}

func errNotFound() error {
	return dErrors.New(dErrors.CodeCPFNotFound, "CPF not found")
}

// startSpan opens a span named after the operation; the returned func ends it
// and records err when it is an internal failure.
func (s *Service) startSpan(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "cpf."+op)
	return ctx, func(err error) {
		if err != nil {
			code := dErrors.CodeOf(err)
			span.SetAttributes(attribute.String("cpf.error_code", string(code)))
			if code == dErrors.CodeInternal {
				span.RecordError(err)
				span.SetStatus(codes.Error, "internal error")
			}
		}
		span.End()
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
