package board

import (
	"context"

	"github.com/LorenzoCW/dnd-investments/internal/dnd"
)

// DragStart begins a gesture over a list or card.
func (m *Manager) DragStart(kind dnd.ItemKind, id, originListID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.machine.Start(kind, id, originListID, m.snap)
}

// DragOver processes one intermediate position update. Previews are
// returned to the caller without being persisted; a cross-list card move
// is committed immediately as a persisted edit.
func (m *Manager) DragOver(ctx context.Context, target dnd.Target) (dnd.Effect, error) {
	m.mu.Lock()
	eff := m.machine.Over(target, m.snap)
	m.mu.Unlock()

	if eff.Type == dnd.EffectReassignCard {
		if err := m.MoveCardToList(ctx, eff.CardID, eff.TargetListID); err != nil {
			return eff, err
		}
	}
	return eff, nil
}

// DragEnd completes the gesture, persisting the final list permutation
// when a list was dragged.
func (m *Manager) DragEnd(ctx context.Context) error {
	m.mu.Lock()
	eff := m.machine.End()
	if eff.Type != dnd.EffectCommitListOrder {
		m.mu.Unlock()
		return nil
	}
	if !m.caps.Reorder {
		m.mu.Unlock()
		return ErrNotPermitted
	}
	defer m.mu.Unlock()
	return m.setBoardOrderLocked(ctx, eff.Order)
}

// DragCancel aborts the gesture. No persistence call is made; local state
// stays reconciled against whatever the store last pushed.
func (m *Manager) DragCancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.machine.Cancel()
}
