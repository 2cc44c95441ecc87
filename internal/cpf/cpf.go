// Package cpf exposes the CPF registry module: validation, registration,
// lookup, listing, and removal of Brazilian taxpayer numbers.
package cpf

import (
	"log/slog"

	"cpfregistry/internal/cpf/handler"
	"cpfregistry/internal/cpf/service"
	"cpfregistry/internal/cpf/store"
)

// Service exposes CPF registry orchestration.
type Service = service.Service

// Handler wires HTTP endpoints to the CPF service.
type Handler = handler.Handler

// Store is the persistence port the service depends on.
type Store = service.Store

// NewService constructs the CPF service over st.
func NewService(st Store, opts ...service.Option) (*Service, error) {
	return service.New(st, opts...)
}

// NewHandler constructs the HTTP handler for /cpf routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}

// NewInMemoryStore returns a process-local store.
func NewInMemoryStore() *store.InMemory {
	return store.NewInMemory()
}
