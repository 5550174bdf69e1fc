// Package store defines the board persistence contract shared by the
// remote and in-memory adapters.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/LorenzoCW/dnd-investments/internal/core"
)

var (
	// ErrNotFound reports an operation against a list or card the store no
	// longer knows about.
	ErrNotFound = errors.New("not found")
)

type (
	// OnChange receives an authoritative snapshot whenever lists, board
	// order or cards change, from this client or any other.
	OnChange func(snap core.Snapshot)

	// Unsubscribe releases a subscription. Safe to call more than once.
	Unsubscribe func()

	// CardPatch is a partial card update; nil fields are left untouched.
	CardPatch struct {
		ListID       *string
		AmountCents  *int64
		OccurredAt   *time.Time
		IsProjection *bool
	}

	// Store is the persistence contract. Transfers and batch card creation
	// must be applied atomically: partial application would violate the
	// conserved-value invariants.
	Store interface {
		// SubscribeAll delivers an initial snapshot and then one snapshot
		// per upstream change until unsubscribed. A missing board order is
		// treated as empty.
		SubscribeAll(ctx context.Context, onChange OnChange) (Unsubscribe, error)

		// CreateList appends the new list to the board order.
		CreateList(ctx context.Context, title string) (string, error)
		// DeleteList cascades deletion to the list's cards and removes the
		// id from the board order.
		DeleteList(ctx context.Context, id string) error
		SetBoardOrder(ctx context.Context, order []string) error

		CreateCard(ctx context.Context, draft core.CardDraft) (string, error)
		// CreateCards creates all drafts atomically (installment batches).
		CreateCards(ctx context.Context, drafts []core.CardDraft) ([]string, error)
		DeleteCard(ctx context.Context, id string) error
		UpdateCard(ctx context.Context, id string, patch CardPatch) error

		// TransferCard atomically reduces (or removes) the source card and
		// creates the realized destination card, returning its id.
		TransferCard(ctx context.Context, sourceID string, amountCents int64, targetListID string, occurredAt time.Time) (string, error)
	}
)

// Apply returns the card with the patch applied.
func (p CardPatch) Apply(c core.Card) core.Card {
	if p.ListID != nil {
		c.ListID = *p.ListID
	}
	if p.AmountCents != nil {
		c.Amount = core.Money{Cents: *p.AmountCents}
	}
	if p.OccurredAt != nil {
		c.OccurredAt = *p.OccurredAt
	}
	if p.IsProjection != nil {
		c.IsProjection = *p.IsProjection
	}
	return c
}
