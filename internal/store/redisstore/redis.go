// Package redisstore implements the board store over Redis: hashes for
// lists and cards, a Redis list for the board order, and a pub/sub channel
// that pushes change notifications to every subscribed client.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/LorenzoCW/dnd-investments/internal/core"
	"github.com/LorenzoCW/dnd-investments/internal/store"
)

const defaultPrefix = "board"

type Store struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) listsKey() string   { return s.prefix + ":lists" }
func (s *Store) cardsKey() string   { return s.prefix + ":cards" }
func (s *Store) orderKey() string   { return s.prefix + ":order" }
func (s *Store) seqKey() string     { return s.prefix + ":seq" }
func (s *Store) channelKey() string { return s.prefix + ":updates" }

type listEntity struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type cardEntity struct {
	ID           string    `json:"id"`
	ListID       string    `json:"listId"`
	AmountCents  int64     `json:"amountCents"`
	OccurredAt   time.Time `json:"occurredAt"`
	IsProjection bool      `json:"isProjection"`
	// Seq preserves insertion order for timestamp ties across clients.
	Seq int64 `json:"seq"`
}

func (e cardEntity) card() core.Card {
	return core.Card{
		ID:           e.ID,
		ListID:       e.ListID,
		Amount:       core.Money{Cents: e.AmountCents},
		OccurredAt:   e.OccurredAt,
		IsProjection: e.IsProjection,
	}
}

// SubscribeAll delivers the current snapshot, then one snapshot per change
// notification published by any client.
func (s *Store) SubscribeAll(ctx context.Context, onChange store.OnChange) (store.Unsubscribe, error) {
	pubsub := s.client.Subscribe(ctx, s.channelKey())
	// Force the subscription onto the wire before the initial fetch so no
	// change between fetch and subscribe is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", s.channelKey(), err)
	}

	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	onChange(snap)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range pubsub.Channel() {
			snap, err := s.fetchSnapshot(ctx)
			if err != nil {
				// The next notification retries; a closed client ends the
				// channel and the loop.
				continue
			}
			onChange(snap)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}, nil
}

// Snapshot returns the current authoritative board state. Used by
// consumers (e.g. the report worker) that need the full picture rather
// than the push feed.
func (s *Store) Snapshot(ctx context.Context) (core.Snapshot, error) {
	return s.fetchSnapshot(ctx)
}

func (s *Store) fetchSnapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot

	rawLists, err := s.client.HGetAll(ctx, s.listsKey()).Result()
	if err != nil {
		return snap, fmt.Errorf("fetch lists: %w", err)
	}
	for _, raw := range rawLists {
		var e listEntity
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return snap, fmt.Errorf("decode list: %w", err)
		}
		snap.Lists = append(snap.Lists, core.List{ID: e.ID, Title: e.Title})
	}
	sort.Slice(snap.Lists, func(i, j int) bool { return snap.Lists[i].ID < snap.Lists[j].ID })

	rawCards, err := s.client.HGetAll(ctx, s.cardsKey()).Result()
	if err != nil {
		return snap, fmt.Errorf("fetch cards: %w", err)
	}
	entities := make([]cardEntity, 0, len(rawCards))
	for _, raw := range rawCards {
		var e cardEntity
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return snap, fmt.Errorf("decode card: %w", err)
		}
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].Seq < entities[j].Seq })
	for _, e := range entities {
		snap.Cards = append(snap.Cards, e.card())
	}

	// A board order that is not there yet is simply empty; reconciliation
	// appends whatever lists are known.
	order, err := s.client.LRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return snap, fmt.Errorf("fetch board order: %w", err)
	}
	snap.BoardOrder = core.ReconcileBoardOrder(order, snap.Lists)
	return snap, nil
}

func (s *Store) publish(ctx context.Context) {
	// Notification only; subscribers re-fetch the authoritative snapshot.
	_ = s.client.Publish(ctx, s.channelKey(), "changed").Err()
}

func (s *Store) CreateList(ctx context.Context, title string) (string, error) {
	l := core.List{ID: uuid.NewString(), Title: title}
	if err := l.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(listEntity{ID: l.ID, Title: l.Title})
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.listsKey(), l.ID, raw)
	pipe.RPush(ctx, s.orderKey(), l.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create list: %w", err)
	}
	s.publish(ctx)
	return l.ID, nil
}

func (s *Store) DeleteList(ctx context.Context, id string) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, s.listsKey(), id).Result()
		if err != nil {
			return fmt.Errorf("check list: %w", err)
		}
		if !exists {
			return store.ErrNotFound
		}

		rawCards, err := tx.HGetAll(ctx, s.cardsKey()).Result()
		if err != nil {
			return fmt.Errorf("fetch cards: %w", err)
		}
		var cascade []string
		for cardID, raw := range rawCards {
			var e cardEntity
			if err := json.Unmarshal([]byte(raw), &e); err != nil {
				continue
			}
			if e.ListID == id {
				cascade = append(cascade, cardID)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, s.listsKey(), id)
			if len(cascade) > 0 {
				pipe.HDel(ctx, s.cardsKey(), cascade...)
			}
			pipe.LRem(ctx, s.orderKey(), 0, id)
			return nil
		})
		return err
	}, s.listsKey(), s.cardsKey())
	if err != nil {
		return err
	}
	s.publish(ctx)
	return nil
}

func (s *Store) SetBoardOrder(ctx context.Context, order []string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.orderKey())
	if len(order) > 0 {
		args := make([]interface{}, len(order))
		for i, id := range order {
			args[i] = id
		}
		pipe.RPush(ctx, s.orderKey(), args...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set board order: %w", err)
	}
	s.publish(ctx)
	return nil
}

func (s *Store) CreateCard(ctx context.Context, draft core.CardDraft) (string, error) {
	ids, err := s.CreateCards(ctx, []core.CardDraft{draft})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// CreateCards writes all drafts in one transaction so installment batches
// are all-or-nothing.
func (s *Store) CreateCards(ctx context.Context, drafts []core.CardDraft) ([]string, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	for _, d := range drafts {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}

	var ids []string
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		for _, d := range drafts {
			exists, err := tx.HExists(ctx, s.listsKey(), d.ListID).Result()
			if err != nil {
				return fmt.Errorf("check list: %w", err)
			}
			if !exists {
				return store.ErrNotFound
			}
		}

		seq, err := tx.IncrBy(ctx, s.seqKey(), int64(len(drafts))).Result()
		if err != nil {
			return fmt.Errorf("advance sequence: %w", err)
		}
		seq -= int64(len(drafts))

		ids = make([]string, 0, len(drafts))
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, d := range drafts {
				id := uuid.NewString()
				raw, err := json.Marshal(cardEntity{
					ID:           id,
					ListID:       d.ListID,
					AmountCents:  d.Amount.Cents,
					OccurredAt:   d.OccurredAt.UTC(),
					IsProjection: d.IsProjection,
					Seq:          seq + int64(i) + 1,
				})
				if err != nil {
					return fmt.Errorf("encode card: %w", err)
				}
				pipe.HSet(ctx, s.cardsKey(), id, raw)
				ids = append(ids, id)
			}
			return nil
		})
		return err
	}, s.listsKey(), s.cardsKey())
	if err != nil {
		return nil, err
	}
	s.publish(ctx)
	return ids, nil
}

func (s *Store) DeleteCard(ctx context.Context, id string) error {
	removed, err := s.client.HDel(ctx, s.cardsKey(), id).Result()
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if removed == 0 {
		return store.ErrNotFound
	}
	s.publish(ctx)
	return nil
}

func (s *Store) UpdateCard(ctx context.Context, id string, patch store.CardPatch) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		e, err := s.getCard(ctx, tx, id)
		if err != nil {
			return err
		}
		updated := patch.Apply(e.card())
		if updated.ListID != e.ListID {
			exists, err := tx.HExists(ctx, s.listsKey(), updated.ListID).Result()
			if err != nil {
				return fmt.Errorf("check list: %w", err)
			}
			if !exists {
				return store.ErrNotFound
			}
		}
		e.ListID = updated.ListID
		e.AmountCents = updated.Amount.Cents
		e.OccurredAt = updated.OccurredAt.UTC()
		e.IsProjection = updated.IsProjection

		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode card: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.cardsKey(), id, raw)
			return nil
		})
		return err
	}, s.cardsKey())
	if err != nil {
		return err
	}
	s.publish(ctx)
	return nil
}

// TransferCard applies both sides of a transfer in a single Redis
// transaction, watching the cards hash so a concurrent edit of the source
// aborts rather than double-spends.
func (s *Store) TransferCard(ctx context.Context, sourceID string, amountCents int64, targetListID string, occurredAt time.Time) (string, error) {
	var newID string
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		e, err := s.getCard(ctx, tx, sourceID)
		if err != nil {
			return err
		}
		exists, err := tx.HExists(ctx, s.listsKey(), targetListID).Result()
		if err != nil {
			return fmt.Errorf("check target list: %w", err)
		}
		if !exists {
			return store.ErrNotFound
		}

		plan, err := core.PlanTransfer(e.card(), amountCents, targetListID, occurredAt)
		if err != nil {
			return err
		}
		seq, err := tx.Incr(ctx, s.seqKey()).Result()
		if err != nil {
			return fmt.Errorf("advance sequence: %w", err)
		}

		newID = uuid.NewString()
		rawNew, err := json.Marshal(cardEntity{
			ID:           newID,
			ListID:       plan.NewCard.ListID,
			AmountCents:  plan.NewCard.Amount.Cents,
			OccurredAt:   plan.NewCard.OccurredAt.UTC(),
			IsProjection: plan.NewCard.IsProjection,
			Seq:          seq,
		})
		if err != nil {
			return fmt.Errorf("encode card: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if plan.RemoveSource {
				pipe.HDel(ctx, s.cardsKey(), sourceID)
			} else {
				e.AmountCents = plan.RemainingCents
				rawSource, err := json.Marshal(e)
				if err != nil {
					return fmt.Errorf("encode source card: %w", err)
				}
				pipe.HSet(ctx, s.cardsKey(), sourceID, rawSource)
			}
			pipe.HSet(ctx, s.cardsKey(), newID, rawNew)
			return nil
		})
		return err
	}, s.cardsKey())
	if err != nil {
		return "", err
	}
	s.publish(ctx)
	return newID, nil
}

func (s *Store) getCard(ctx context.Context, tx *redis.Tx, id string) (cardEntity, error) {
	raw, err := tx.HGet(ctx, s.cardsKey(), id).Result()
	if err == redis.Nil {
		return cardEntity{}, store.ErrNotFound
	}
	if err != nil {
		return cardEntity{}, fmt.Errorf("fetch card: %w", err)
	}
	var e cardEntity
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return cardEntity{}, fmt.Errorf("decode card: %w", err)
	}
	return e, nil
}
