package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2025, 3, 9))
	if err != nil || string(b) != `"2025-03-09"` {
		t.Fatalf("marshal: %s %v", b, err)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2024-02-29"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.February || d.Day() != 29 {
		t.Fatalf("unexpected date %v", d)
	}
	if err := json.Unmarshal([]byte(`"29/02/2024"`), &d); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestPaymentTermsDueDate(t *testing.T) {
	tests := []struct {
		terms PaymentTerms
		want  Date
	}{
		{DueOnReceipt, NewDate(2025, 1, 1)},
		{Net15, NewDate(2025, 1, 16)},
		{Net30, NewDate(2025, 1, 31)},
		{Net45, NewDate(2025, 2, 15)},
		{Net60, NewDate(2025, 3, 2)},
	}
	for _, tt := range tests {
		t.Run(string(tt.terms), func(t *testing.T) {
			got := DueDate(NewDate(2025, 1, 1), tt.terms)
			if !got.Equal(tt.want.Time) {
				t.Errorf("DueDate(%s) = %s, want %s", tt.terms, got, tt.want)
			}
		})
	}
}

func TestValidationErrorKeepsFirstMessage(t *testing.T) {
	var v ValidationError
	if v.Err() != nil {
		t.Fatal("empty validation error should be nil")
	}
	v.Add("email", "required")
	v.Add("email", "invalid")
	if v.Fields["email"] != "required" {
		t.Fatalf("first message should win, got %q", v.Fields["email"])
	}
	var target *ValidationError
	if !errors.As(v.Err(), &target) {
		t.Fatal("Err should return *ValidationError")
	}
}
