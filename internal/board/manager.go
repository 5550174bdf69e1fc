// Package board hosts the state manager that owns the canonical in-memory
// board snapshot and orchestrates the stores, the drag machine and the
// financial operations.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LorenzoCW/dnd-investments/internal/core"
	"github.com/LorenzoCW/dnd-investments/internal/dnd"
	"github.com/LorenzoCW/dnd-investments/internal/events"
	"github.com/LorenzoCW/dnd-investments/internal/store"
	"github.com/LorenzoCW/dnd-investments/internal/store/memory"
)

// ErrNotPermitted reports an operation outside the session's capabilities.
var ErrNotPermitted = errors.New("operation not permitted")

// Capabilities gates what a session may do, independent of any UI
// affordance being rendered.
type Capabilities struct {
	ManageLists   bool
	EditCards     bool
	TransferCards bool
	Reorder       bool
}

// AllCapabilities returns a fully-enabled capability set.
func AllCapabilities() Capabilities {
	return Capabilities{ManageLists: true, EditCards: true, TransferCards: true, Reorder: true}
}

// FallbackWarning reports that an operation succeeded locally but the
// session degraded to non-durable, local-only persistence. It is a
// recoverable condition, not a failure.
type FallbackWarning struct {
	Cause error
}

func (w *FallbackWarning) Error() string {
	return fmt.Sprintf("persistence degraded to local memory: %v", w.Cause)
}

func (w *FallbackWarning) Unwrap() error { return w.Cause }

// Manager owns the canonical snapshot. All mutations are serialized under
// one mutex; every other component sees read-only copies or pure results.
type Manager struct {
	mu   sync.Mutex
	snap core.Snapshot

	remote      store.Store
	fallback    *memory.Store
	degraded    bool
	unsubscribe store.Unsubscribe

	machine *dnd.Machine
	caps    Capabilities

	publisher events.Publisher
	logger    *slog.Logger

	watchers map[int]store.OnChange
	nextID   int

	now func() time.Time
}

// New creates a manager over the given store. publisher may be nil to
// disable event publishing.
func New(remote store.Store, caps Capabilities, publisher events.Publisher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		remote:    remote,
		machine:   dnd.NewMachine(),
		caps:      caps,
		publisher: publisher,
		logger:    logger,
		watchers:  make(map[int]store.OnChange),
		now:       time.Now,
	}
}

// Connect subscribes to the remote store. A failing subscription degrades
// the session to fallback mode immediately; the manager stays usable.
func (m *Manager) Connect(ctx context.Context) error {
	unsub, err := m.remote.SubscribeAll(ctx, m.onRemotePush)
	if err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.degradeLocked(err)
		return &FallbackWarning{Cause: err}
	}
	m.mu.Lock()
	m.unsubscribe = unsub
	m.mu.Unlock()
	return nil
}

// Teardown releases the remote subscription. Safe on every exit path.
func (m *Manager) Teardown() {
	m.mu.Lock()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Degraded reports whether the session runs on local-only persistence.
func (m *Manager) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

// Snapshot returns a copy of the canonical board state.
func (m *Manager) Snapshot() core.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone()
}

// Watch registers a callback invoked with a snapshot copy after every
// visible change. The callback runs on the mutating goroutine and must not
// call back into the manager.
func (m *Manager) Watch(onChange store.OnChange) store.Unsubscribe {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = onChange
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.watchers, id)
			m.mu.Unlock()
		})
	}
}

// onRemotePush installs an authoritative remote snapshot. Ignored once
// degraded: the local store is authoritative for the rest of the session.
func (m *Manager) onRemotePush(snap core.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.degraded {
		return
	}
	snap.BoardOrder = core.ReconcileBoardOrder(snap.BoardOrder, snap.Lists)
	m.snap = snap
	m.notifyLocked()
}

func (m *Manager) notifyLocked() {
	snap := m.snap.Clone()
	for _, fn := range m.watchers {
		fn(snap)
	}
}

// degradeLocked flips the one-way switch into fallback mode, carrying the
// last known snapshot into a seeded local store.
func (m *Manager) degradeLocked(cause error) {
	if m.degraded {
		return
	}
	m.degraded = true
	m.fallback = memory.New()
	m.fallback.Load(m.snap)
	m.fallback.SeedDefaultsIfEmpty()
	m.snap = m.fallback.Snapshot()

	if m.unsubscribe != nil {
		// Release the remote subscription from a separate goroutine: the
		// push handler takes the same mutex.
		unsub := m.unsubscribe
		m.unsubscribe = nil
		go unsub()
	}

	m.logger.Warn("Persistence failure, continuing with local-only board",
		"component", "board", "error", cause)
	m.notifyLocked()
}

// isPersistenceFailure separates infrastructure errors (which trigger
// fallback) from domain rejections (which do not).
func isPersistenceFailure(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrTooManyDecimals),
		errors.Is(err, core.ErrInsufficientFunds),
		errors.Is(err, core.ErrInvalidMonthRange),
		errors.Is(err, core.ErrEmptyTitle):
		return false
	}
	return true
}

func (m *Manager) publish(ctx context.Context, ev events.BoardEvent) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishBoardEvent(ctx, ev); err != nil {
		// Event delivery is best-effort; the operation already succeeded.
		m.logger.Warn("Failed to publish board event",
			"component", "board", "event", ev.Type, "error", err)
	}
}

// AddList creates a list and appends it to the board order.
func (m *Manager) AddList(ctx context.Context, title string) (string, error) {
	if !m.caps.ManageLists {
		return "", ErrNotPermitted
	}
	l := core.List{ID: provisionalID(), Title: title}
	if err := l.Validate(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.degraded {
		id, err := m.fallback.CreateList(ctx, title)
		if err != nil {
			return "", err
		}
		m.reloadFromFallbackLocked()
		return id, nil
	}

	m.snap.Lists = append(m.snap.Lists, l)
	m.snap.BoardOrder = append(m.snap.BoardOrder, l.ID)
	m.notifyLocked()

	id, err := m.remote.CreateList(ctx, title)
	if err != nil {
		if isPersistenceFailure(err) {
			// Re-apply cleanly against the fallback store instead of
			// carrying the provisional entry into it.
			m.dropListLocked(l.ID)
			m.degradeLocked(err)
			localID, localErr := m.fallback.CreateList(ctx, title)
			if localErr != nil {
				return "", localErr
			}
			m.reloadFromFallbackLocked()
			return localID, &FallbackWarning{Cause: err}
		}
		m.dropListLocked(l.ID)
		return "", err
	}
	m.renameListLocked(l.ID, id)
	m.notifyLocked()
	m.publish(ctx, events.ListCreated(id, title))
	return id, nil
}

// RemoveList deletes a list and all of its cards. Unknown ids are ignored.
func (m *Manager) RemoveList(ctx context.Context, id string) error {
	if !m.caps.ManageLists {
		return ErrNotPermitted
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.snap.FindList(id); !ok {
		return nil
	}

	if m.degraded {
		if err := m.fallback.DeleteList(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		m.reloadFromFallbackLocked()
		return nil
	}

	m.dropListLocked(id)
	m.notifyLocked()

	err := m.remote.DeleteList(ctx, id)
	if isPersistenceFailure(err) {
		m.degradeLocked(err)
		// The optimistic removal is already part of the carried snapshot.
		return &FallbackWarning{Cause: err}
	}
	m.publish(ctx, events.ListDeleted(id))
	return nil
}

// AddCard creates a card. Amounts must be positive; a zero occurredAt
// defaults to now. Targeting an unknown list is a silent no-op.
func (m *Manager) AddCard(ctx context.Context, listID string, amountCents int64, occurredAt time.Time, isProjection bool) (string, error) {
	if !m.caps.EditCards {
		return "", ErrNotPermitted
	}
	if amountCents <= 0 {
		return "", core.ErrInvalidAmount
	}
	if occurredAt.IsZero() {
		occurredAt = m.now().UTC()
	}
	draft := core.CardDraft{ListID: listID, Amount: core.Money{Cents: amountCents}, OccurredAt: occurredAt, IsProjection: isProjection}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.snap.FindList(listID); !ok {
		m.logger.Debug("Ignoring card for unknown list", "component", "board", "list_id", listID)
		return "", nil
	}

	if m.degraded {
		id, err := m.fallback.CreateCard(ctx, draft)
		if err != nil {
			return "", err
		}
		m.reloadFromFallbackLocked()
		return id, nil
	}

	provisional := provisionalID()
	m.snap.Cards = append(m.snap.Cards, draft.Card(provisional))
	m.notifyLocked()

	id, err := m.remote.CreateCard(ctx, draft)
	if err != nil {
		if isPersistenceFailure(err) {
			m.dropCardLocked(provisional)
			m.degradeLocked(err)
			localID, localErr := m.fallback.CreateCard(ctx, draft)
			if localErr != nil {
				return "", localErr
			}
			m.reloadFromFallbackLocked()
			return localID, &FallbackWarning{Cause: err}
		}
		m.dropCardLocked(provisional)
		return "", err
	}
	m.renameCardLocked(provisional, id)
	m.notifyLocked()
	m.publish(ctx, events.CardCreated(id, listID, amountCents, occurredAt, isProjection))
	return id, nil
}

// RemoveCard deletes a card. Unknown ids are ignored.
func (m *Manager) RemoveCard(ctx context.Context, id string) error {
	if !m.caps.EditCards {
		return ErrNotPermitted
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeCardLocked(ctx, id)
}

func (m *Manager) removeCardLocked(ctx context.Context, id string) error {
	if _, ok := m.snap.FindCard(id); !ok {
		return nil
	}

	if m.degraded {
		if err := m.fallback.DeleteCard(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		m.reloadFromFallbackLocked()
		return nil
	}

	m.dropCardLocked(id)
	m.notifyLocked()

	err := m.remote.DeleteCard(ctx, id)
	if isPersistenceFailure(err) {
		m.degradeLocked(err)
		return &FallbackWarning{Cause: err}
	}
	m.publish(ctx, events.CardDeleted(id))
	return nil
}

// EditCard updates a card's amount and/or timestamp. Editing the amount to
// zero deletes the card; negative amounts are rejected.
func (m *Manager) EditCard(ctx context.Context, id string, amountCents *int64, occurredAt *time.Time) error {
	if !m.caps.EditCards {
		return ErrNotPermitted
	}
	if amountCents != nil && *amountCents < 0 {
		return core.ErrInvalidAmount
	}
	if amountCents != nil && *amountCents == 0 {
		// Zero-amount cards are not retained.
		return m.RemoveCard(ctx, id)
	}
	patch := store.CardPatch{AmountCents: amountCents, OccurredAt: occurredAt}
	return m.patchCard(ctx, id, patch)
}

// ToggleProjection promotes a projection to a realized balance (or back)
// without otherwise changing the card.
func (m *Manager) ToggleProjection(ctx context.Context, id string) error {
	if !m.caps.EditCards {
		return ErrNotPermitted
	}
	m.mu.Lock()
	card, ok := m.snap.FindCard(id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	flipped := !card.IsProjection
	return m.patchCard(ctx, id, store.CardPatch{IsProjection: &flipped})
}

// MoveCardToList reassigns a card to another list, refreshing its
// timestamp so it sorts to the top of the destination.
func (m *Manager) MoveCardToList(ctx context.Context, cardID, targetListID string) error {
	if !m.caps.EditCards {
		return ErrNotPermitted
	}
	m.mu.Lock()
	_, cardOK := m.snap.FindCard(cardID)
	_, listOK := m.snap.FindList(targetListID)
	m.mu.Unlock()
	if !cardOK || !listOK {
		return nil
	}
	nowTS := m.now().UTC()
	return m.patchCard(ctx, cardID, store.CardPatch{ListID: &targetListID, OccurredAt: &nowTS})
}

func (m *Manager) patchCard(ctx context.Context, id string, patch store.CardPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	card, ok := m.snap.FindCard(id)
	if !ok {
		return nil
	}

	if m.degraded {
		if err := m.fallback.UpdateCard(ctx, id, patch); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		m.reloadFromFallbackLocked()
		return nil
	}

	m.replaceCardLocked(patch.Apply(card))
	m.notifyLocked()

	err := m.remote.UpdateCard(ctx, id, patch)
	if isPersistenceFailure(err) {
		m.degradeLocked(err)
		return &FallbackWarning{Cause: err}
	}
	if err == nil {
		m.publish(ctx, events.CardUpdated(id))
	}
	return nil
}

// Transfer moves part of a card's amount into a new realized card in the
// target list, conserving total value. A zero occurredAt defaults to now.
func (m *Manager) Transfer(ctx context.Context, sourceID string, amountCents int64, targetListID string, occurredAt time.Time) (string, error) {
	if !m.caps.TransferCards {
		return "", ErrNotPermitted
	}
	if occurredAt.IsZero() {
		occurredAt = m.now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	source, ok := m.snap.FindCard(sourceID)
	if !ok {
		return "", nil
	}
	if _, ok := m.snap.FindList(targetListID); !ok {
		return "", nil
	}
	// Validate before touching any state.
	plan, err := core.PlanTransfer(source, amountCents, targetListID, occurredAt)
	if err != nil {
		return "", err
	}

	if m.degraded {
		id, err := m.fallback.TransferCard(ctx, sourceID, amountCents, targetListID, occurredAt)
		if err != nil {
			return "", err
		}
		m.reloadFromFallbackLocked()
		return id, nil
	}

	provisional := provisionalID()
	m.applyTransferLocked(plan, provisional)
	m.notifyLocked()

	id, err := m.remote.TransferCard(ctx, sourceID, amountCents, targetListID, occurredAt)
	if err != nil {
		if isPersistenceFailure(err) {
			m.degradeLocked(err)
			// The optimistic application is already in the carried
			// snapshot; the provisional id stays as the local identity.
			return provisional, &FallbackWarning{Cause: err}
		}
		return "", err
	}
	m.renameCardLocked(provisional, id)
	m.notifyLocked()
	m.publish(ctx, events.CardTransferred(sourceID, id, amountCents, targetListID))
	return id, nil
}

// AddInstallments generates one projected card per month over the
// inclusive range, conserving the total. The batch is atomic.
func (m *Manager) AddInstallments(ctx context.Context, listID string, totalCents int64, start, end core.Month, dayOfMonth int) ([]string, error) {
	if !m.caps.EditCards {
		return nil, ErrNotPermitted
	}
	drafts, err := core.BuildInstallmentPlan(listID, totalCents, start, end, dayOfMonth)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.snap.FindList(listID); !ok {
		return nil, nil
	}

	if m.degraded {
		ids, err := m.fallback.CreateCards(ctx, drafts)
		if err != nil {
			return nil, err
		}
		m.reloadFromFallbackLocked()
		return ids, nil
	}

	provisionals := make([]string, len(drafts))
	for i, d := range drafts {
		provisionals[i] = provisionalID()
		m.snap.Cards = append(m.snap.Cards, d.Card(provisionals[i]))
	}
	m.notifyLocked()

	ids, err := m.remote.CreateCards(ctx, drafts)
	if err != nil {
		for _, p := range provisionals {
			m.dropCardLocked(p)
		}
		if isPersistenceFailure(err) {
			m.degradeLocked(err)
			localIDs, localErr := m.fallback.CreateCards(ctx, drafts)
			if localErr != nil {
				return nil, localErr
			}
			m.reloadFromFallbackLocked()
			return localIDs, &FallbackWarning{Cause: err}
		}
		m.notifyLocked()
		return nil, err
	}
	for i, p := range provisionals {
		m.renameCardLocked(p, ids[i])
	}
	m.notifyLocked()
	m.publish(ctx, events.InstallmentsCreated(listID, totalCents, len(ids)))
	return ids, nil
}

// SetBoardOrder persists a new list permutation.
func (m *Manager) SetBoardOrder(ctx context.Context, order []string) error {
	if !m.caps.Reorder {
		return ErrNotPermitted
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setBoardOrderLocked(ctx, order)
}

func (m *Manager) setBoardOrderLocked(ctx context.Context, order []string) error {
	reconciled := core.ReconcileBoardOrder(order, m.snap.Lists)

	if m.degraded {
		if err := m.fallback.SetBoardOrder(ctx, reconciled); err != nil {
			return err
		}
		m.reloadFromFallbackLocked()
		return nil
	}

	m.snap.BoardOrder = reconciled
	m.notifyLocked()

	err := m.remote.SetBoardOrder(ctx, reconciled)
	if isPersistenceFailure(err) {
		m.degradeLocked(err)
		return &FallbackWarning{Cause: err}
	}
	return nil
}

func provisionalID() string {
	return "local-" + uuid.NewString()
}

// --- snapshot mutation helpers (callers hold mu) ---

func (m *Manager) reloadFromFallbackLocked() {
	m.snap = m.fallback.Snapshot()
	m.notifyLocked()
}

func (m *Manager) dropListLocked(id string) {
	lists := m.snap.Lists[:0]
	for _, l := range m.snap.Lists {
		if l.ID != id {
			lists = append(lists, l)
		}
	}
	m.snap.Lists = lists
	cards := m.snap.Cards[:0]
	for _, c := range m.snap.Cards {
		if c.ListID != id {
			cards = append(cards, c)
		}
	}
	m.snap.Cards = cards
	if i := core.IndexOf(m.snap.BoardOrder, id); i >= 0 {
		m.snap.BoardOrder = append(m.snap.BoardOrder[:i], m.snap.BoardOrder[i+1:]...)
	}
}

func (m *Manager) renameListLocked(oldID, newID string) {
	for i := range m.snap.Lists {
		if m.snap.Lists[i].ID == oldID {
			m.snap.Lists[i].ID = newID
		}
	}
	for i := range m.snap.Cards {
		if m.snap.Cards[i].ListID == oldID {
			m.snap.Cards[i].ListID = newID
		}
	}
	if i := core.IndexOf(m.snap.BoardOrder, oldID); i >= 0 {
		m.snap.BoardOrder[i] = newID
	}
}

func (m *Manager) dropCardLocked(id string) {
	cards := m.snap.Cards[:0]
	for _, c := range m.snap.Cards {
		if c.ID != id {
			cards = append(cards, c)
		}
	}
	m.snap.Cards = cards
}

func (m *Manager) renameCardLocked(oldID, newID string) {
	for i := range m.snap.Cards {
		if m.snap.Cards[i].ID == oldID {
			m.snap.Cards[i].ID = newID
		}
	}
}

func (m *Manager) replaceCardLocked(card core.Card) {
	for i := range m.snap.Cards {
		if m.snap.Cards[i].ID == card.ID {
			m.snap.Cards[i] = card
		}
	}
}

func (m *Manager) applyTransferLocked(plan core.TransferPlan, newID string) {
	if plan.RemoveSource {
		m.dropCardLocked(plan.SourceID)
	} else {
		for i := range m.snap.Cards {
			if m.snap.Cards[i].ID == plan.SourceID {
				m.snap.Cards[i].Amount = core.Money{Cents: plan.RemainingCents}
			}
		}
	}
	m.snap.Cards = append(m.snap.Cards, plan.NewCard.Card(newID))
}
