package memory

import (
	"context"
	"testing"
	"time"

	"github.com/LorenzoCW/dnd-investments/internal/core"
	"github.com/LorenzoCW/dnd-investments/internal/store"
)

func TestSeedDefaultsIfEmpty(t *testing.T) {
	s := New()
	s.SeedDefaultsIfEmpty()
	snap := s.Snapshot()
	if len(snap.Lists) != len(DefaultListTitles) {
		t.Fatalf("expected %d seeded lists, got %d", len(DefaultListTitles), len(snap.Lists))
	}
	if len(snap.BoardOrder) != len(snap.Lists) {
		t.Fatalf("board order must cover all lists: %v", snap.BoardOrder)
	}

	// Seeding twice must not duplicate.
	s.SeedDefaultsIfEmpty()
	if got := len(s.Snapshot().Lists); got != len(DefaultListTitles) {
		t.Fatalf("expected seeding to be idempotent, got %d lists", got)
	}
}

func TestListLifecycleCascades(t *testing.T) {
	ctx := context.Background()
	s := New()

	listID, err := s.CreateList(ctx, "Contas")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	keepID, err := s.CreateList(ctx, "Metas")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	if _, err := s.CreateCard(ctx, core.CardDraft{ListID: listID, Amount: core.Money{Cents: 100}, OccurredAt: time.Now()}); err != nil {
		t.Fatalf("create card: %v", err)
	}
	keptCard, err := s.CreateCard(ctx, core.CardDraft{ListID: keepID, Amount: core.Money{Cents: 200}, OccurredAt: time.Now()})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}

	if err := s.DeleteList(ctx, listID); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Lists) != 1 || snap.Lists[0].ID != keepID {
		t.Fatalf("expected only the kept list, got %+v", snap.Lists)
	}
	if len(snap.Cards) != 1 || snap.Cards[0].ID != keptCard {
		t.Fatalf("cascade must remove only the deleted list's cards, got %+v", snap.Cards)
	}
	if core.IndexOf(snap.BoardOrder, listID) >= 0 {
		t.Fatalf("deleted list must leave the board order")
	}

	if err := s.DeleteList(ctx, listID); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestCreateCardRequiresExistingList(t *testing.T) {
	s := New()
	_, err := s.CreateCard(context.Background(), core.CardDraft{ListID: "ghost", Amount: core.Money{Cents: 100}, OccurredAt: time.Now()})
	if err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransferCardConservesValue(t *testing.T) {
	ctx := context.Background()
	s := New()
	listA, _ := s.CreateList(ctx, "A")
	listB, _ := s.CreateList(ctx, "B")
	sourceID, _ := s.CreateCard(ctx, core.CardDraft{ListID: listA, Amount: core.Money{Cents: 10000}, OccurredAt: time.Now()})

	newID, err := s.TransferCard(ctx, sourceID, 4000, listB, time.Now())
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	snap := s.Snapshot()
	source, ok := snap.FindCard(sourceID)
	if !ok || source.Amount.Cents != 6000 {
		t.Fatalf("expected source reduced to 6000, got %+v (ok=%v)", source, ok)
	}
	dest, ok := snap.FindCard(newID)
	if !ok || dest.Amount.Cents != 4000 || dest.ListID != listB || dest.IsProjection {
		t.Fatalf("unexpected destination card %+v (ok=%v)", dest, ok)
	}

	// Full transfer removes the source.
	lastID, err := s.TransferCard(ctx, sourceID, 6000, listB, time.Now())
	if err != nil {
		t.Fatalf("full transfer: %v", err)
	}
	snap = s.Snapshot()
	if _, ok := snap.FindCard(sourceID); ok {
		t.Fatalf("source must be removed on full transfer")
	}
	if _, ok := snap.FindCard(lastID); !ok {
		t.Fatalf("destination card missing after full transfer")
	}
}

func TestTransferCardRejectsWithoutStateChange(t *testing.T) {
	ctx := context.Background()
	s := New()
	listA, _ := s.CreateList(ctx, "A")
	listB, _ := s.CreateList(ctx, "B")
	sourceID, _ := s.CreateCard(ctx, core.CardDraft{ListID: listA, Amount: core.Money{Cents: 1000}, OccurredAt: time.Now()})

	before := s.Snapshot()
	if _, err := s.TransferCard(ctx, sourceID, 5000, listB, time.Now()); err != core.ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := s.TransferCard(ctx, sourceID, 0, listB, time.Now()); err != core.ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	after := s.Snapshot()
	if len(after.Cards) != len(before.Cards) {
		t.Fatalf("rejected transfer must not change state")
	}
	if c, _ := after.FindCard(sourceID); c.Amount.Cents != 1000 {
		t.Fatalf("source amount changed on rejected transfer: %d", c.Amount.Cents)
	}
}

func TestCreateCardsIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	listA, _ := s.CreateList(ctx, "A")

	drafts := []core.CardDraft{
		{ListID: listA, Amount: core.Money{Cents: 100}, OccurredAt: time.Now()},
		{ListID: "ghost", Amount: core.Money{Cents: 200}, OccurredAt: time.Now()},
	}
	if _, err := s.CreateCards(ctx, drafts); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := len(s.Snapshot().Cards); got != 0 {
		t.Fatalf("failed batch must create nothing, got %d cards", got)
	}

	drafts[1].ListID = listA
	ids, err := s.CreateCards(ctx, drafts)
	if err != nil || len(ids) != 2 {
		t.Fatalf("expected 2 cards, got %v (err=%v)", ids, err)
	}
}

func waitSnapshot(t *testing.T, pushes <-chan core.Snapshot) core.Snapshot {
	t.Helper()
	select {
	case snap := <-pushes:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot push")
		return core.Snapshot{}
	}
}

func TestSubscribeAllPushesOnChange(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded()

	pushes := make(chan core.Snapshot, 8)
	unsub, err := s.SubscribeAll(ctx, func(snap core.Snapshot) {
		pushes <- snap
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	initial := waitSnapshot(t, pushes)
	if len(initial.Lists) != len(DefaultListTitles) {
		t.Fatalf("initial snapshot has %d lists", len(initial.Lists))
	}

	listID := initial.BoardOrder[0]
	if _, err := s.CreateCard(ctx, core.CardDraft{ListID: listID, Amount: core.Money{Cents: 500}, OccurredAt: time.Now()}); err != nil {
		t.Fatalf("create card: %v", err)
	}
	next := waitSnapshot(t, pushes)
	if len(next.Cards) != 1 {
		t.Fatalf("expected pushed snapshot with the new card, got %d cards", len(next.Cards))
	}

	unsub()
	unsub() // safe to call twice
	_ = s.SetBoardOrder(ctx, initial.BoardOrder)
	select {
	case snap := <-pushes:
		t.Fatalf("unexpected push after unsubscribe: %v", snap.BoardOrder)
	case <-time.After(50 * time.Millisecond):
	}
}
