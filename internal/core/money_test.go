package core

import (
	"errors"
	"testing"
)

func TestParseAmountToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"500", 50000, true},
		{"500,00", 50000, true},
		{"1.234,56", 123456, true},
		{"1234.56", 123456, true},
		{"1,234.56", 123456, true},
		{"1.5", 150, true},
		{"1,5", 150, true},
		{"0,01", 1, true},
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"1.234.567,89", 123456789, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1,2,3", 0, false},
		{",50", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmountToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseAmountToCentsDistinguishesTooManyDecimals(t *testing.T) {
	cases := []string{"1.234", "1,234", "10.005", "0,999"}
	for _, in := range cases {
		_, err := ParseAmountToCents(in)
		if !errors.Is(err, ErrTooManyDecimals) {
			t.Fatalf("%q expected ErrTooManyDecimals, got %v", in, err)
		}
	}

	if _, err := ParseAmountToCents("abc"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for non-numeric input, got %v", err)
	}
}

func TestParseAmountRoundTrip(t *testing.T) {
	// Every accepted spelling of the same value parses to the same cents
	// and formats back to one canonical string.
	inputs := []string{"1234.56", "1234,56", "1.234,56", "1,234.56"}
	for _, in := range inputs {
		cents, err := ParseAmountToCents(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if cents != 123456 {
			t.Fatalf("%q: expected 123456, got %d", in, cents)
		}
		if got := FormatCents(cents); got != "R$ 1.234,56" {
			t.Fatalf("%q: expected canonical format, got %q", in, got)
		}
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		in  int64
		out string
	}{
		{0, "R$ 0,00"},
		{1, "R$ 0,01"},
		{100, "R$ 1,00"},
		{10000, "R$ 100,00"},
		{123456, "R$ 1.234,56"},
		{100000000, "R$ 1.000.000,00"},
		{-4000, "R$ -40,00"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.in); got != tc.out {
			t.Fatalf("%d expected %q, got %q", tc.in, tc.out, got)
		}
	}
}
