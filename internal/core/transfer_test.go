package core

import (
	"testing"
	"time"
)

func TestPlanTransferPartial(t *testing.T) {
	source := Card{
		ID:         "card-1",
		ListID:     "list-a",
		Amount:     Money{Cents: 10000},
		OccurredAt: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	when := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	plan, err := PlanTransfer(source, 4000, "list-b", when)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.RemoveSource {
		t.Fatalf("partial transfer must keep the source")
	}
	if plan.RemainingCents != 6000 {
		t.Fatalf("expected remaining 6000, got %d", plan.RemainingCents)
	}
	if plan.NewCard.ListID != "list-b" || plan.NewCard.Amount.Cents != 4000 {
		t.Fatalf("unexpected new card %+v", plan.NewCard)
	}
	if plan.NewCard.IsProjection {
		t.Fatalf("a transfer always materializes a realized balance")
	}
	if !plan.NewCard.OccurredAt.Equal(when) {
		t.Fatalf("expected supplied timestamp, got %v", plan.NewCard.OccurredAt)
	}
	// Conservation: remaining + transferred == original.
	if plan.RemainingCents+plan.NewCard.Amount.Cents != source.Amount.Cents {
		t.Fatalf("transfer does not conserve value")
	}
}

func TestPlanTransferFullAmountRemovesSource(t *testing.T) {
	source := Card{ID: "card-1", ListID: "list-a", Amount: Money{Cents: 2500}, IsProjection: true}

	plan, err := PlanTransfer(source, 2500, "list-b", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !plan.RemoveSource {
		t.Fatalf("transferring the full amount must remove the source")
	}
	if plan.NewCard.Amount.Cents != 2500 {
		t.Fatalf("expected 2500 in new card, got %d", plan.NewCard.Amount.Cents)
	}
	if plan.NewCard.IsProjection {
		t.Fatalf("new card must be realized even when the source is a projection")
	}
}

func TestPlanTransferRejects(t *testing.T) {
	source := Card{ID: "card-1", Amount: Money{Cents: 1000}}

	cases := []struct {
		amount int64
		want   error
	}{
		{0, ErrInvalidAmount},
		{-100, ErrInvalidAmount},
		{1001, ErrInsufficientFunds},
	}
	for _, tc := range cases {
		if _, err := PlanTransfer(source, tc.amount, "list-b", time.Now()); err != tc.want {
			t.Fatalf("amount %d: expected %v, got %v", tc.amount, tc.want, err)
		}
	}
}
