package core

import (
	"testing"
	"time"
)

func TestMonthsInclusive(t *testing.T) {
	cases := []struct {
		start, end Month
		out        int
	}{
		{Month{2025, 1}, Month{2025, 3}, 3},
		{Month{2025, 1}, Month{2025, 1}, 1},
		{Month{2024, 11}, Month{2025, 2}, 4},
		{Month{2025, 3}, Month{2025, 1}, -1},
		{Month{2025, 1}, Month{2024, 12}, 0},
	}
	for _, tc := range cases {
		if got := MonthsInclusive(tc.start, tc.end); got != tc.out {
			t.Fatalf("%v..%v expected %d, got %d", tc.start, tc.end, tc.out, got)
		}
	}
}

func TestSplitInstallmentsConservation(t *testing.T) {
	cases := []struct {
		total  int64
		months int
		want   []int64
	}{
		{10000, 3, []int64{3333, 3333, 3334}},
		{10000, 1, []int64{10000}},
		{100, 3, []int64{33, 33, 34}},
		{1, 2, []int64{0, 1}},
		{99999, 12, nil}, // checked by sum only
	}
	for _, tc := range cases {
		got, err := SplitInstallments(tc.total, tc.months)
		if err != nil {
			t.Fatalf("split(%d, %d): unexpected error %v", tc.total, tc.months, err)
		}
		if len(got) != tc.months {
			t.Fatalf("split(%d, %d): expected %d parts, got %d", tc.total, tc.months, tc.months, len(got))
		}
		var sum int64
		for i, v := range got {
			sum += v
			if i < len(got)-1 && v != got[0] {
				t.Fatalf("split(%d, %d): part %d differs from base", tc.total, tc.months, i)
			}
		}
		if sum != tc.total {
			t.Fatalf("split(%d, %d): sum %d does not conserve total", tc.total, tc.months, sum)
		}
		if tc.want != nil {
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("split(%d, %d): expected %v, got %v", tc.total, tc.months, tc.want, got)
				}
			}
		}
	}
}

func TestSplitInstallmentsRejects(t *testing.T) {
	if _, err := SplitInstallments(10000, 0); err != ErrInvalidMonthRange {
		t.Fatalf("expected ErrInvalidMonthRange for zero months, got %v", err)
	}
	if _, err := SplitInstallments(10000, -2); err != ErrInvalidMonthRange {
		t.Fatalf("expected ErrInvalidMonthRange for negative months, got %v", err)
	}
	if _, err := SplitInstallments(0, 3); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount for zero total, got %v", err)
	}
}

func TestInstallmentScheduleClampsDay(t *testing.T) {
	// Day 31 starting in January: February gets 28 (2025 is not a leap
	// year), April gets 30.
	got := InstallmentSchedule(Month{2025, 1}, 4, 31)
	wantDays := []int{31, 28, 31, 30}
	for i, ts := range got {
		if ts.Day() != wantDays[i] {
			t.Fatalf("installment %d: expected day %d, got %d", i, wantDays[i], ts.Day())
		}
		if ts.Month() != time.Month(i+1) {
			t.Fatalf("installment %d: expected month %d, got %d", i, i+1, ts.Month())
		}
		if ts.Hour() != installmentHour || ts.Location() != time.UTC {
			t.Fatalf("installment %d: unexpected time of day %v", i, ts)
		}
	}
}

func TestInstallmentScheduleCrossesYear(t *testing.T) {
	got := InstallmentSchedule(Month{2024, 11}, 4, 15)
	if got[2].Year() != 2025 || got[2].Month() != time.January {
		t.Fatalf("expected third installment in 2025-01, got %v", got[2])
	}
}

func TestBuildInstallmentPlan(t *testing.T) {
	drafts, err := BuildInstallmentPlan("list-a", 10000, Month{2025, 1}, Month{2025, 3}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(drafts))
	}
	var sum int64
	for _, d := range drafts {
		sum += d.Amount.Cents
		if !d.IsProjection {
			t.Fatalf("installment drafts must be projections")
		}
		if d.ListID != "list-a" {
			t.Fatalf("unexpected list id %q", d.ListID)
		}
	}
	if sum != 10000 {
		t.Fatalf("plan does not conserve total: %d", sum)
	}

	if _, err := BuildInstallmentPlan("list-a", 10000, Month{2025, 3}, Month{2025, 1}, 10); err != ErrInvalidMonthRange {
		t.Fatalf("expected ErrInvalidMonthRange for inverted range, got %v", err)
	}
	if _, err := BuildInstallmentPlan("list-a", 10000, Month{2025, 13}, Month{2026, 1}, 10); err != ErrInvalidMonthRange {
		t.Fatalf("expected ErrInvalidMonthRange for month 13, got %v", err)
	}
}
