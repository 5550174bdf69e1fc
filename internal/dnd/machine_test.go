package dnd

import (
	"reflect"
	"testing"
	"time"

	"github.com/LorenzoCW/dnd-investments/internal/core"
)

func boardSnapshot() core.Snapshot {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return core.Snapshot{
		Lists:      []core.List{{ID: "a", Title: "Contas"}, {ID: "b", Title: "Metas"}, {ID: "c", Title: "Extras"}},
		BoardOrder: []string{"a", "b", "c"},
		Cards: []core.Card{
			{ID: "c1", ListID: "a", Amount: core.Money{Cents: 100}, OccurredAt: base.Add(3 * time.Hour)},
			{ID: "c2", ListID: "a", Amount: core.Money{Cents: 200}, OccurredAt: base.Add(2 * time.Hour)},
			{ID: "c3", ListID: "a", Amount: core.Money{Cents: 300}, OccurredAt: base.Add(time.Hour)},
			{ID: "c4", ListID: "b", Amount: core.Money{Cents: 400}, OccurredAt: base},
		},
	}
}

func TestOverWhileIdleIsNoop(t *testing.T) {
	m := NewMachine()
	eff := m.Over(Target{Kind: KindList, ID: "a"}, boardSnapshot())
	if eff.Type != EffectNone {
		t.Fatalf("expected no effect while idle, got %v", eff.Type)
	}
}

func TestSelfOverlapIsNoop(t *testing.T) {
	snap := boardSnapshot()
	m := NewMachine()

	m.Start(KindList, "a", "", snap)
	if eff := m.Over(Target{Kind: KindList, ID: "a"}, snap); eff.Type != EffectNone {
		t.Fatalf("list over itself: expected no effect, got %v", eff.Type)
	}

	m.Start(KindCard, "c1", "a", snap)
	if eff := m.Over(Target{Kind: KindCard, ID: "c1", ListID: "a"}, snap); eff.Type != EffectNone {
		t.Fatalf("card over itself: expected no effect, got %v", eff.Type)
	}
}

func TestListDragPreviewAndCommit(t *testing.T) {
	snap := boardSnapshot()
	m := NewMachine()
	m.Start(KindList, "a", "", snap)

	eff := m.Over(Target{Kind: KindList, ID: "c"}, snap)
	if eff.Type != EffectPreviewListOrder {
		t.Fatalf("expected list order preview, got %v", eff.Type)
	}
	if want := []string{"b", "c", "a"}; !reflect.DeepEqual(eff.Order, want) {
		t.Fatalf("expected preview %v, got %v", want, eff.Order)
	}

	// A later update supersedes the earlier preview.
	eff = m.Over(Target{Kind: KindList, ID: "b"}, snap)
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(eff.Order, want) {
		t.Fatalf("expected preview %v, got %v", want, eff.Order)
	}
	eff = m.Over(Target{Kind: KindList, ID: "c"}, snap)
	if want := []string{"b", "c", "a"}; !reflect.DeepEqual(eff.Order, want) {
		t.Fatalf("expected preview %v, got %v", want, eff.Order)
	}

	commit := m.End()
	if commit.Type != EffectCommitListOrder {
		t.Fatalf("expected commit on drop, got %v", commit.Type)
	}
	if want := []string{"b", "c", "a"}; !reflect.DeepEqual(commit.Order, want) {
		t.Fatalf("expected committed order %v, got %v", want, commit.Order)
	}
	if m.State() != Idle {
		t.Fatalf("machine must return to idle after drop")
	}
}

func TestListDragCancelDiscardsPreview(t *testing.T) {
	snap := boardSnapshot()
	m := NewMachine()
	m.Start(KindList, "a", "", snap)
	m.Over(Target{Kind: KindList, ID: "c"}, snap)

	m.Cancel()
	if m.State() != Idle {
		t.Fatalf("cancel must return to idle")
	}
	if eff := m.End(); eff.Type != EffectNone {
		t.Fatalf("nothing to commit after cancel, got %v", eff.Type)
	}
}

func TestCardOverCardSameListPreviews(t *testing.T) {
	snap := boardSnapshot()
	m := NewMachine()
	m.Start(KindCard, "c1", "a", snap)

	eff := m.Over(Target{Kind: KindCard, ID: "c3", ListID: "a"}, snap)
	if eff.Type != EffectPreviewCardOrder {
		t.Fatalf("expected card order preview, got %v", eff.Type)
	}
	if eff.ListID != "a" {
		t.Fatalf("expected preview for list a, got %q", eff.ListID)
	}
	if want := []string{"c2", "c3", "c1"}; !reflect.DeepEqual(eff.Order, want) {
		t.Fatalf("expected preview %v, got %v", want, eff.Order)
	}

	// Dropping a same-list reorder commits nothing: in-list order stays
	// timestamp-driven.
	if commit := m.End(); commit.Type != EffectNone {
		t.Fatalf("card drop must not commit a list order, got %v", commit.Type)
	}
}

func TestCardOverCardAcrossListsReassigns(t *testing.T) {
	snap := boardSnapshot()
	m := NewMachine()
	m.Start(KindCard, "c1", "a", snap)

	eff := m.Over(Target{Kind: KindCard, ID: "c4", ListID: "b"}, snap)
	if eff.Type != EffectReassignCard {
		t.Fatalf("expected reassignment, got %v", eff.Type)
	}
	if eff.CardID != "c1" || eff.TargetListID != "b" {
		t.Fatalf("unexpected reassignment %+v", eff)
	}
}

func TestCardOverListReassigns(t *testing.T) {
	snap := boardSnapshot()
	m := NewMachine()
	m.Start(KindCard, "c1", "a", snap)

	if eff := m.Over(Target{Kind: KindList, ID: "a"}, snap); eff.Type != EffectNone {
		t.Fatalf("hovering the card's own list is not a move, got %v", eff.Type)
	}

	eff := m.Over(Target{Kind: KindList, ID: "c"}, snap)
	if eff.Type != EffectReassignCard || eff.TargetListID != "c" {
		t.Fatalf("expected reassignment to list c, got %+v", eff)
	}
}

func TestStaleTargetsAreIgnored(t *testing.T) {
	snap := boardSnapshot()
	m := NewMachine()
	m.Start(KindCard, "c1", "a", snap)

	if eff := m.Over(Target{Kind: KindCard, ID: "deleted", ListID: "b"}, snap); eff.Type != EffectNone {
		t.Fatalf("stale card target must be ignored, got %v", eff.Type)
	}
	if eff := m.Over(Target{Kind: KindList, ID: "deleted"}, snap); eff.Type != EffectNone {
		t.Fatalf("stale list target must be ignored, got %v", eff.Type)
	}

	// The dragged card itself vanished from the snapshot.
	m.Start(KindCard, "ghost", "a", snap)
	if eff := m.Over(Target{Kind: KindCard, ID: "c2", ListID: "a"}, snap); eff.Type != EffectNone {
		t.Fatalf("vanished active card must be ignored, got %v", eff.Type)
	}
}
