package handler

import "strings"

// RegisterRequest is the HTTP request body for POST /cpf. CPF is raw user
// input; checksum validation happens in the service.
type RegisterRequest struct {
	CPF string `json:"cpf"`
}

// Validate implements httputil.Validatable.
// A missing cpf stays empty and is rejected by the service as invalid_cpf.
func (r *RegisterRequest) Validate() error {
	r.CPF = strings.TrimSpace(r.CPF)
	return nil
}
