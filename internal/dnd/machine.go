// Package dnd tracks an in-progress drag gesture across the board's two
// orderable collections: lists, and cards within lists.
//
// The machine is pure with respect to board state: it consumes read-only
// snapshots and emits effects; the board manager interprets and persists
// them. The machine itself is not safe for concurrent use, matching the
// serialized event flow it models.
package dnd

import (
	"github.com/LorenzoCW/dnd-investments/internal/core"
)

// ItemKind distinguishes what is being dragged or hovered.
type ItemKind int

const (
	KindList ItemKind = iota + 1
	KindCard
)

// State is the gesture phase.
type State int

const (
	Idle State = iota
	Dragging
)

// EffectType classifies what the board manager must do with an effect.
type EffectType int

const (
	// EffectNone means nothing to apply (self-overlap, stale target, idle).
	EffectNone EffectType = iota
	// EffectPreviewListOrder is a live, uncommitted board-order preview.
	EffectPreviewListOrder
	// EffectPreviewCardOrder is a live, uncommitted in-list card order.
	EffectPreviewCardOrder
	// EffectReassignCard moves a card to another list. Unlike previews this
	// is committed immediately as a persisted edit.
	EffectReassignCard
	// EffectCommitListOrder persists the final list permutation on drop.
	EffectCommitListOrder
)

// Effect is the machine's output for one position update or gesture end.
type Effect struct {
	Type EffectType

	// Order is the board order for list effects, or the in-list card id
	// order for card previews.
	Order []string
	// ListID is the list whose card order Order previews.
	ListID string

	// CardID and TargetListID describe a reassignment.
	CardID       string
	TargetListID string
}

// Target is what the dragged item currently overlaps.
type Target struct {
	Kind ItemKind
	ID   string
	// ListID is the containing list when Kind is KindCard.
	ListID string
}

// Machine is the two-state drag tracker.
type Machine struct {
	state    State
	kind     ItemKind
	activeID string
	// originListID is the list the card started in; currentListID follows
	// mid-drag reassignments.
	originListID  string
	currentListID string
	// previewOrder holds the latest board-order preview of a list drag so
	// the drop can commit it.
	previewOrder []string
}

func NewMachine() *Machine {
	return &Machine{}
}

func (m *Machine) State() State { return m.state }

// ActiveID returns the dragged item's id, or "" when idle.
func (m *Machine) ActiveID() string {
	if m.state != Dragging {
		return ""
	}
	return m.activeID
}

// Start begins a gesture. Starting while one is active replaces it.
func (m *Machine) Start(kind ItemKind, id, originListID string, snap core.Snapshot) {
	m.state = Dragging
	m.kind = kind
	m.activeID = id
	m.originListID = originListID
	m.currentListID = originListID
	m.previewOrder = nil
	if kind == KindList {
		m.previewOrder = core.ReconcileBoardOrder(snap.BoardOrder, snap.Lists)
	}
}

// Over processes one intermediate position update.
func (m *Machine) Over(over Target, snap core.Snapshot) Effect {
	if m.state != Dragging {
		return Effect{}
	}
	// Items are never reordered against themselves.
	if over.ID == m.activeID {
		return Effect{}
	}

	switch m.kind {
	case KindList:
		return m.listOver(over)
	case KindCard:
		return m.cardOver(over, snap)
	}
	return Effect{}
}

func (m *Machine) listOver(over Target) Effect {
	if over.Kind != KindList {
		return Effect{}
	}
	from := core.IndexOf(m.previewOrder, m.activeID)
	to := core.IndexOf(m.previewOrder, over.ID)
	if from < 0 || to < 0 {
		// Stale target: one of the lists no longer exists.
		return Effect{}
	}
	m.previewOrder = core.MoveIndex(m.previewOrder, from, to)
	return Effect{
		Type:  EffectPreviewListOrder,
		Order: append([]string(nil), m.previewOrder...),
	}
}

func (m *Machine) cardOver(over Target, snap core.Snapshot) Effect {
	active, ok := snap.FindCard(m.activeID)
	if !ok {
		// The dragged card was deleted elsewhere; nothing to do.
		return Effect{}
	}

	switch over.Kind {
	case KindCard:
		target, ok := snap.FindCard(over.ID)
		if !ok {
			return Effect{}
		}
		if target.ListID == active.ListID {
			return m.cardReorderPreview(active, target, snap)
		}
		return m.reassign(target.ListID)
	case KindList:
		if _, ok := snap.FindList(over.ID); !ok {
			return Effect{}
		}
		if over.ID == active.ListID {
			// Hovering the card's own list is not a move.
			return Effect{}
		}
		return m.reassign(over.ID)
	}
	return Effect{}
}

// cardReorderPreview reinserts the active card at the hovered card's index
// within the list's sorted view. This is presentation-only: the persisted
// in-list order remains timestamp-driven.
func (m *Machine) cardReorderPreview(active, target core.Card, snap core.Snapshot) Effect {
	cards := snap.CardsInList(active.ListID)
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	from := core.IndexOf(ids, active.ID)
	to := core.IndexOf(ids, target.ID)
	if from < 0 || to < 0 {
		return Effect{}
	}
	return Effect{
		Type:   EffectPreviewCardOrder,
		ListID: active.ListID,
		Order:  core.MoveIndex(ids, from, to),
	}
}

func (m *Machine) reassign(targetListID string) Effect {
	m.currentListID = targetListID
	return Effect{
		Type:         EffectReassignCard,
		CardID:       m.activeID,
		TargetListID: targetListID,
	}
}

// End completes the gesture. For a list drag the final permutation is
// returned for persistence; a card drag has already committed any
// reassignment incrementally and yields nothing further.
func (m *Machine) End() Effect {
	if m.state != Dragging {
		return Effect{}
	}
	var out Effect
	if m.kind == KindList && m.previewOrder != nil {
		out = Effect{
			Type:  EffectCommitListOrder,
			Order: append([]string(nil), m.previewOrder...),
		}
	}
	m.reset()
	return out
}

// Cancel aborts the gesture without any persistence call. Reassignments
// already committed mid-drag stay committed.
func (m *Machine) Cancel() {
	m.reset()
}

func (m *Machine) reset() {
	*m = Machine{}
}
