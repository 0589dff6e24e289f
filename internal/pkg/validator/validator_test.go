package validator

import (
	"errors"
	"testing"
	"time"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", // valid UUIDv7
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B", // valid UUIDv7 (uppercase)
	}
	invalid := []string{
		"123e4567-e89b-12d3-a456-426614174000", // not v7
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",     // missing dashes
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", // invalid hex
		"",                                     // empty
	}
	for _, uuid := range valid {
		if !IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = false, want true", uuid)
		}
	}
	for _, uuid := range invalid {
		if IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = true, want false", uuid)
		}
	}
}

func TestParseOptionalDate(t *testing.T) {
	got, err := ParseOptionalDate("2024-03-09")
	if err != nil {
		t.Fatalf("ParseOptionalDate returned %v", err)
	}
	if want := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ParseOptionalDate = %v, want %v", got, want)
	}

	if got, err := ParseOptionalDate(""); err != nil || !got.IsZero() {
		t.Errorf("ParseOptionalDate(\"\") = %v, %v, want zero time", got, err)
	}
	if _, err := ParseOptionalDate("09/03/2024"); err == nil {
		t.Error("ParseOptionalDate accepted a non ISO date")
	}
}

type openRequest struct {
	Kind string `json:"kind" validate:"required,oneof=daily logs"`
	Rows int    `json:"rows" validate:"gte=0,lte=100"`
	Date string `json:"date" validate:"date"`
	Note string `json:"-" validate:"max=3"`
}

func TestStruct(t *testing.T) {
	if err := Struct(openRequest{Kind: "daily", Rows: 10, Date: "2024-03-01"}); err != nil {
		t.Fatalf("Struct returned %v for a valid request", err)
	}

	err := Struct(openRequest{Kind: "payroll", Rows: 500, Date: "yesterday"})
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Struct error = %T, want ValidationErrors", err)
	}
	fields := errs.ToMap()
	for _, field := range []string{"kind", "rows", "date"} {
		if _, ok := fields[field]; !ok {
			t.Errorf("missing validation error for %q in %v", field, fields)
		}
	}
	if fields["date"] != "must be a date in YYYY-MM-DD format" {
		t.Errorf("date message = %q", fields["date"])
	}
}

func TestStruct_Required(t *testing.T) {
	err := Struct(openRequest{})
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("Struct error = %T, want ValidationErrors", err)
	}
	if got := errs.ToMap()["kind"]; got != "is required" {
		t.Errorf("kind message = %q, want %q", got, "is required")
	}
}
