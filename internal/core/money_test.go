package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{".5", 50, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{"1.005", 101, true},
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1 000", 0, false},
		{".", 0, false},
		{"", 0, false},
		{"999999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Errorf("ParseAmount(%q) = %d, %v; want %d", tc.in, got, err, tc.out)
			}
		} else if err == nil {
			t.Errorf("ParseAmount(%q) = %d, want error", tc.in, got)
		}
	}
}

func TestMoneyUnmarshalJSON(t *testing.T) {
	var v struct {
		Cents   Money `json:"cents"`
		Decimal Money `json:"decimal"`
		Missing Money `json:"missing"`
	}
	if err := json.Unmarshal([]byte(`{"cents":1250,"decimal":"12,50","missing":null}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.Cents.Cents != 1250 || v.Decimal.Cents != 1250 || v.Missing.Cents != 0 {
		t.Errorf("decoded %+v", v)
	}
	if err := json.Unmarshal([]byte(`{"cents":"ten"}`), &v); err == nil {
		t.Error("expected an error for a non-numeric amount")
	}
	out, _ := json.Marshal(Money{Cents: 99})
	if string(out) != "99" {
		t.Errorf("MarshalJSON = %s", out)
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		13750:  "137.50",
		-1999:  "-19.99",
		100000: "1000.00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}
