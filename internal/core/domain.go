package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

type (
	// List is a board column holding cards.
	List struct {
		ID    string
		Title string
	}

	// Card is a single monetary entry. Projection cards are planned future
	// amounts; non-projection cards are realized balances.
	Card struct {
		ID           string
		ListID       string
		Amount       Money
		OccurredAt   time.Time
		IsProjection bool
	}

	// CardDraft carries the fields of a card that does not yet have an
	// identifier assigned by the store.
	CardDraft struct {
		ListID       string
		Amount       Money
		OccurredAt   time.Time
		IsProjection bool
	}

	// Snapshot is the full board state: the known lists, the persisted
	// display order of list ids, and all cards.
	Snapshot struct {
		Lists      []List
		BoardOrder []string
		Cards      []Card
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrTooManyDecimals   = errors.New("more than two decimal digits")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidMonthRange = errors.New("invalid month range")
	ErrEmptyTitle        = errors.New("empty list title")
)

func (l List) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return ErrEmptyTitle
	}
	if len(l.Title) > 100 {
		return errors.New("list title too long (max 100 characters)")
	}
	return nil
}

func (c Card) Validate() error {
	if c.ListID == "" {
		return errors.New("card has no list")
	}
	if c.OccurredAt.IsZero() {
		return errors.New("card has no timestamp")
	}
	return c.Amount.Validate()
}

func (d CardDraft) Validate() error {
	return Card{ListID: d.ListID, Amount: d.Amount, OccurredAt: d.OccurredAt}.Validate()
}

// Card returns the draft promoted to a card with the given identifier.
func (d CardDraft) Card(id string) Card {
	return Card{
		ID:           id,
		ListID:       d.ListID,
		Amount:       d.Amount,
		OccurredAt:   d.OccurredAt,
		IsProjection: d.IsProjection,
	}
}

// Clone returns a deep copy of the snapshot so callers can hand out
// read-only views without aliasing the canonical slices.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Lists:      append([]List(nil), s.Lists...),
		BoardOrder: append([]string(nil), s.BoardOrder...),
		Cards:      append([]Card(nil), s.Cards...),
	}
}

// FindList returns the list with the given id, if present.
func (s Snapshot) FindList(id string) (List, bool) {
	for _, l := range s.Lists {
		if l.ID == id {
			return l, true
		}
	}
	return List{}, false
}

// FindCard returns the card with the given id, if present.
func (s Snapshot) FindCard(id string) (Card, bool) {
	for _, c := range s.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

// CardsInList returns the cards belonging to the given list ordered by
// OccurredAt descending. Ties keep their arrival order.
func (s Snapshot) CardsInList(listID string) []Card {
	var out []Card
	for _, c := range s.Cards {
		if c.ListID == listID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return out
}
