package core

import "time"

// TransferPlan is the computed outcome of moving part of a card's amount
// into another list. Either the source survives with a reduced amount
// (RemoveSource false) or it is consumed entirely (RemoveSource true).
// Applying the plan against a store must be atomic.
type TransferPlan struct {
	SourceID     string
	RemoveSource bool
	// RemainingCents is the source's new amount when RemoveSource is false.
	RemainingCents int64
	NewCard        CardDraft
}

// PlanTransfer computes the result of transferring amountCents out of
// source into targetListID. The new card is always a realized balance,
// regardless of the source's projection flag, and total value is conserved:
// remaining + transferred == source amount.
func PlanTransfer(source Card, amountCents int64, targetListID string, occurredAt time.Time) (TransferPlan, error) {
	if amountCents <= 0 {
		return TransferPlan{}, ErrInvalidAmount
	}
	if amountCents > source.Amount.Cents {
		return TransferPlan{}, ErrInsufficientFunds
	}

	remaining := source.Amount.Cents - amountCents
	return TransferPlan{
		SourceID:       source.ID,
		RemoveSource:   remaining == 0,
		RemainingCents: remaining,
		NewCard: CardDraft{
			ListID:       targetListID,
			Amount:       Money{Cents: amountCents},
			OccurredAt:   occurredAt,
			IsProjection: false,
		},
	}, nil
}
