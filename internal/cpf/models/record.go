package models

import (
	"time"

	id "cpfregistry/pkg/domain"
)

// Record is a persisted CPF registration.
//
// Invariants:
//   - CPF is normalized and passed the checksum before reaching a store
//   - ID and CreatedAt are assigned by the store on insert and never change
//   - There is no update path; a record is created, read, and deleted
type Record struct {
	ID        int64
	CPF       id.CPF
	CreatedAt time.Time
}

// RecordResponse is the public view of a Record. The internal ID is never exposed.
type RecordResponse struct {
	CPF       string    `json:"cpf"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToResponse strips internal fields and normalizes the timestamp to UTC.
func (r *Record) ToResponse() RecordResponse {
	return RecordResponse{
		CPF:       r.CPF.String(),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// ToResponses converts a list, returning an empty (non-nil) slice for no records.
func ToResponses(records []*Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToResponse())
	}
	return out
}
