//go:build go1.18

package domain

import "testing"

// FuzzIsValidCPF checks the validator is total and deterministic, and that
// ParseCPF agrees with it on every input.
func FuzzIsValidCPF(f *testing.F) {
	f.Add("")
	f.Add("64852893055")
	f.Add("648.528.930-55")
	f.Add("11111111111")
	f.Add("13581058998")
	f.Add("'; DROP TABLE cpf_records;--")
	f.Add(string([]byte{0x00, 0x01, 0xff}))

	f.Fuzz(func(t *testing.T, input string) {
		first := IsValidCPF(input)
		if first != IsValidCPF(input) {
			t.Fatal("IsValidCPF is not deterministic")
		}

		cpf, err := ParseCPF(input)
		if first != (err == nil) {
			t.Fatalf("ParseCPF disagrees with IsValidCPF for %q", input)
		}
		if err == nil {
			if len(cpf) != 11 {
				t.Fatalf("parsed CPF has length %d", len(cpf))
			}
			if !IsValidCPF(cpf.String()) {
				t.Fatal("parsed CPF failed round-trip")
			}
		}
	})
}
