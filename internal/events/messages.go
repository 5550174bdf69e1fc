package events

import (
	"encoding/json"
	"time"
)

// Event types carried on the board exchange.
const (
	TypeListCreated         = "list.created"
	TypeListDeleted         = "list.deleted"
	TypeCardCreated         = "card.created"
	TypeCardUpdated         = "card.updated"
	TypeCardDeleted         = "card.deleted"
	TypeCardTransferred     = "card.transferred"
	TypeInstallmentsCreated = "installments.created"
)

// BoardEvent is the compact change notification published after a board
// mutation succeeds. Consumers re-derive aggregates from these.
type BoardEvent struct {
	Type       string    `json:"type"`
	ListID     string    `json:"listId,omitempty"`
	Title      string    `json:"title,omitempty"`
	CardID     string    `json:"cardId,omitempty"`
	SourceID   string    `json:"sourceId,omitempty"`
	Cents      int64     `json:"cents,omitempty"`
	OccurredAt time.Time `json:"occurredAt,omitempty"`
	Projection bool      `json:"projection,omitempty"`
	Count      int       `json:"count,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func ListCreated(id, title string) BoardEvent {
	return BoardEvent{Type: TypeListCreated, ListID: id, Title: title, Timestamp: time.Now()}
}

func ListDeleted(id string) BoardEvent {
	return BoardEvent{Type: TypeListDeleted, ListID: id, Timestamp: time.Now()}
}

func CardCreated(id, listID string, cents int64, occurredAt time.Time, projection bool) BoardEvent {
	return BoardEvent{
		Type:       TypeCardCreated,
		CardID:     id,
		ListID:     listID,
		Cents:      cents,
		OccurredAt: occurredAt,
		Projection: projection,
		Timestamp:  time.Now(),
	}
}

func CardUpdated(id string) BoardEvent {
	return BoardEvent{Type: TypeCardUpdated, CardID: id, Timestamp: time.Now()}
}

func CardDeleted(id string) BoardEvent {
	return BoardEvent{Type: TypeCardDeleted, CardID: id, Timestamp: time.Now()}
}

func CardTransferred(sourceID, newID string, cents int64, targetListID string) BoardEvent {
	return BoardEvent{
		Type:      TypeCardTransferred,
		SourceID:  sourceID,
		CardID:    newID,
		Cents:     cents,
		ListID:    targetListID,
		Timestamp: time.Now(),
	}
}

func InstallmentsCreated(listID string, totalCents int64, count int) BoardEvent {
	return BoardEvent{
		Type:      TypeInstallmentsCreated,
		ListID:    listID,
		Cents:     totalCents,
		Count:     count,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e BoardEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// BoardEventFromJSON decodes an event from JSON bytes.
func BoardEventFromJSON(data []byte) (BoardEvent, error) {
	var e BoardEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return BoardEvent{}, err
	}
	return e, nil
}
