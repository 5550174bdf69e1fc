package core

import (
	"reflect"
	"testing"
	"time"
)

func TestReconcileBoardOrder(t *testing.T) {
	lists := []List{{ID: "b"}, {ID: "a"}, {ID: "c"}}

	cases := []struct {
		name  string
		order []string
		want  []string
	}{
		{"nil order appends all by id", nil, []string{"a", "b", "c"}},
		{"known order kept", []string{"c", "a", "b"}, []string{"c", "a", "b"}},
		{"stale ids dropped", []string{"c", "gone", "a", "b"}, []string{"c", "a", "b"}},
		{"missing lists appended by id", []string{"c"}, []string{"c", "a", "b"}},
		{"duplicates collapsed", []string{"b", "b", "a"}, []string{"b", "a", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ReconcileBoardOrder(tc.order, lists)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestMoveIndex(t *testing.T) {
	cases := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"forward", 0, 2, []string{"b", "c", "a", "d"}},
		{"backward", 3, 0, []string{"d", "a", "b", "c"}},
		{"same index is a no-op", 1, 1, []string{"a", "b", "c", "d"}},
		{"out of range is a no-op", 1, 9, []string{"a", "b", "c", "d"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := []string{"a", "b", "c", "d"}
			got := MoveIndex(in, tc.from, tc.to)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCardsInListOrdering(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Cards: []Card{
			{ID: "old", ListID: "a", OccurredAt: base},
			{ID: "tie-1", ListID: "a", OccurredAt: base.Add(time.Hour)},
			{ID: "other", ListID: "b", OccurredAt: base.Add(2 * time.Hour)},
			{ID: "tie-2", ListID: "a", OccurredAt: base.Add(time.Hour)},
			{ID: "new", ListID: "a", OccurredAt: base.Add(3 * time.Hour)},
		},
	}

	got := snap.CardsInList("a")
	ids := make([]string, len(got))
	for i, c := range got {
		ids[i] = c.ID
	}
	// Most recent first; equal timestamps keep arrival order.
	want := []string{"new", "tie-1", "tie-2", "old"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
}
