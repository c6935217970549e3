package utils

import (
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last+tag@sub.domain.org"}
	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("expected %q to be valid", e)
		}
	}
	invalid := []string{"", "plain", "no@tld", "@missing.local", "spaces in@mail.com"}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("expected %q to be invalid", e)
		}
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	if err := ValidatePhoneNumber("+380501234567", CountryCode); err != nil {
		t.Errorf("expected mobile number to validate: %v", err)
	}
	if err := ValidatePhoneNumber("12345", CountryCode); err == nil {
		t.Errorf("expected short number to fail")
	}
}

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal("")
	if err != nil || !d.IsZero() {
		t.Fatalf("empty string parses to zero, got %s %v", d, err)
	}
	d, err = ParseDecimal("12.3456")
	if err != nil || d.String() != "12.3456" {
		t.Fatalf("expected 12.3456, got %s %v", d, err)
	}
	if _, err := ParseDecimal("12,5"); err == nil {
		t.Fatalf("expected comma separator to fail")
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order must be first-seen: expected %v, got %v", want, got)
		}
	}
}

func TestNilIfEmpty(t *testing.T) {
	if NilIfEmpty("") != nil {
		t.Fatalf("empty string should map to nil")
	}
	if p := NilIfEmpty("x"); p == nil || *p != "x" {
		t.Fatalf("non-empty string should round-trip")
	}
	if NilIfEmpty(0) != nil {
		t.Fatalf("zero int should map to nil")
	}
}
