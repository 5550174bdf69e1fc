// Package memory provides the in-memory board store used as the fallback
// when the remote store is unavailable, and as a test double.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LorenzoCW/dnd-investments/internal/core"
	"github.com/LorenzoCW/dnd-investments/internal/store"
)

// DefaultListTitles seed an empty board so a degraded session is usable
// immediately.
var DefaultListTitles = []string{"Contas", "Investimentos", "Metas"}

type Store struct {
	mu          sync.Mutex
	lists       map[string]core.List
	cards       map[string]core.Card
	order       []string
	arrival     map[string]int // card id -> insertion sequence, for stable ties
	seq         int
	subscribers map[int]*subscription
	nextSub     int
}

// subscription decouples delivery from the mutating goroutine so a
// subscriber may call back into the store. Every push is a full snapshot,
// so a slow subscriber can safely skip to the latest pending one.
type subscription struct {
	ch   chan core.Snapshot
	quit chan struct{}
}

func New() *Store {
	return &Store{
		lists:       make(map[string]core.List),
		cards:       make(map[string]core.Card),
		arrival:     make(map[string]int),
		subscribers: make(map[int]*subscription),
	}
}

// NewSeeded returns a store pre-populated with the default lists.
func NewSeeded() *Store {
	s := New()
	for _, title := range DefaultListTitles {
		id := uuid.NewString()
		s.lists[id] = core.List{ID: id, Title: title}
		s.order = append(s.order, id)
	}
	return s
}

// SeedDefaultsIfEmpty creates the default lists when the board has none.
func (s *Store) SeedDefaultsIfEmpty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lists) > 0 {
		return
	}
	for _, title := range DefaultListTitles {
		id := uuid.NewString()
		s.lists[id] = core.List{ID: id, Title: title}
		s.order = append(s.order, id)
	}
	s.notifyLocked()
}

// Load replaces the store contents with the given snapshot. Used to carry
// the last known remote state into fallback mode.
func (s *Store) Load(snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = make(map[string]core.List, len(snap.Lists))
	for _, l := range snap.Lists {
		s.lists[l.ID] = l
	}
	s.cards = make(map[string]core.Card, len(snap.Cards))
	s.arrival = make(map[string]int, len(snap.Cards))
	s.seq = 0
	for _, c := range snap.Cards {
		s.cards[c.ID] = c
		s.seq++
		s.arrival[c.ID] = s.seq
	}
	s.order = append([]string(nil), snap.BoardOrder...)
	s.notifyLocked()
}

func (s *Store) SubscribeAll(_ context.Context, onChange store.OnChange) (store.Unsubscribe, error) {
	sub := &subscription{
		ch:   make(chan core.Snapshot, 1),
		quit: make(chan struct{}),
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = sub
	snap := s.snapshotLocked()
	s.mu.Unlock()

	// The initial snapshot is delivered before returning.
	onChange(snap)

	go func() {
		for {
			select {
			case <-sub.quit:
				return
			case snap := <-sub.ch:
				onChange(snap)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(sub.quit)
		})
	}, nil
}

func (s *Store) CreateList(_ context.Context, title string) (string, error) {
	l := core.List{ID: uuid.NewString(), Title: title}
	if err := l.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[l.ID] = l
	s.order = append(s.order, l.ID)
	s.notifyLocked()
	return l.ID, nil
}

func (s *Store) DeleteList(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.lists, id)
	// Cascade: a list removal is atomic with removal of its cards.
	for cid, c := range s.cards {
		if c.ListID == id {
			delete(s.cards, cid)
			delete(s.arrival, cid)
		}
	}
	if i := core.IndexOf(s.order, id); i >= 0 {
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
	s.notifyLocked()
	return nil
}

func (s *Store) SetBoardOrder(_ context.Context, order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append([]string(nil), order...)
	s.notifyLocked()
	return nil
}

func (s *Store) CreateCard(_ context.Context, draft core.CardDraft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.createCardLocked(draft)
	if err != nil {
		return "", err
	}
	s.notifyLocked()
	return id, nil
}

func (s *Store) CreateCards(_ context.Context, drafts []core.CardDraft) ([]string, error) {
	for _, d := range drafts {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// All-or-nothing: check the lists up front.
	for _, d := range drafts {
		if _, ok := s.lists[d.ListID]; !ok {
			return nil, store.ErrNotFound
		}
	}
	ids := make([]string, 0, len(drafts))
	for _, d := range drafts {
		id, err := s.createCardLocked(d)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	s.notifyLocked()
	return ids, nil
}

func (s *Store) createCardLocked(draft core.CardDraft) (string, error) {
	if _, ok := s.lists[draft.ListID]; !ok {
		return "", store.ErrNotFound
	}
	id := uuid.NewString()
	s.cards[id] = draft.Card(id)
	s.seq++
	s.arrival[id] = s.seq
	return id, nil
}

func (s *Store) DeleteCard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.cards, id)
	delete(s.arrival, id)
	s.notifyLocked()
	return nil
}

func (s *Store) UpdateCard(_ context.Context, id string, patch store.CardPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return store.ErrNotFound
	}
	updated := patch.Apply(c)
	if _, ok := s.lists[updated.ListID]; !ok {
		return store.ErrNotFound
	}
	s.cards[id] = updated
	s.notifyLocked()
	return nil
}

func (s *Store) TransferCard(_ context.Context, sourceID string, amountCents int64, targetListID string, occurredAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	source, ok := s.cards[sourceID]
	if !ok {
		return "", store.ErrNotFound
	}
	if _, ok := s.lists[targetListID]; !ok {
		return "", store.ErrNotFound
	}
	plan, err := core.PlanTransfer(source, amountCents, targetListID, occurredAt)
	if err != nil {
		return "", err
	}
	// Single mutex section keeps both sides of the transfer atomic.
	if plan.RemoveSource {
		delete(s.cards, sourceID)
		delete(s.arrival, sourceID)
	} else {
		source.Amount = core.Money{Cents: plan.RemainingCents}
		s.cards[sourceID] = source
	}
	newID, err := s.createCardLocked(plan.NewCard)
	if err != nil {
		return "", err
	}
	s.notifyLocked()
	return newID, nil
}

// Snapshot returns a copy of the current board state.
func (s *Store) Snapshot() core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() core.Snapshot {
	snap := core.Snapshot{}
	for _, l := range s.lists {
		snap.Lists = append(snap.Lists, l)
	}
	for _, c := range s.cards {
		snap.Cards = append(snap.Cards, c)
	}
	// Map iteration order is arbitrary; make snapshots deterministic and
	// keep the tie-break-by-arrival ordering rule observable.
	sortListsByID(snap.Lists)
	sortCardsByArrival(snap.Cards, s.arrival)
	snap.BoardOrder = core.ReconcileBoardOrder(s.order, snap.Lists)
	return snap
}

func (s *Store) notifyLocked() {
	snap := s.snapshotLocked()
	for _, sub := range s.subscribers {
		select {
		case sub.ch <- snap:
		default:
			// Replace the stale pending snapshot; the latest wins.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snap:
			default:
			}
		}
	}
}

func sortListsByID(lists []core.List) {
	sort.Slice(lists, func(i, j int) bool { return lists[i].ID < lists[j].ID })
}

func sortCardsByArrival(cards []core.Card, arrival map[string]int) {
	sort.Slice(cards, func(i, j int) bool { return arrival[cards[i].ID] < arrival[cards[j].ID] })
}
