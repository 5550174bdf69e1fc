package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/LorenzoCW/dnd-investments/internal/core"
	"github.com/LorenzoCW/dnd-investments/internal/events"
	"github.com/LorenzoCW/dnd-investments/internal/report"
)

type stubReader struct {
	snap core.Snapshot
	err  error
}

func (s *stubReader) Snapshot(_ context.Context) (core.Snapshot, error) {
	return s.snap, s.err
}

func TestHandleBoardEventMirrorsSnapshot(t *testing.T) {
	ctx := context.Background()
	repo, err := report.NewRepository(filepath.Join(t.TempDir(), "report.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	jan := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	reader := &stubReader{snap: core.Snapshot{
		Lists: []core.List{{ID: "a", Title: "Contas"}},
		Cards: []core.Card{{ID: "c1", ListID: "a", Amount: core.Money{Cents: 7000}, OccurredAt: jan}},
	}}
	w := NewReportWorker(reader, repo)

	if err := w.HandleBoardEvent(ctx, events.CardCreated("c1", "a", 7000, jan, false)); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	overview, err := repo.MonthOverview(ctx, 2025, 1)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.RealizedCents != 7000 {
		t.Fatalf("expected mirrored 7000 cents, got %d", overview.RealizedCents)
	}
}

func TestHandleBoardEventPropagatesFetchError(t *testing.T) {
	repo, err := report.NewRepository(filepath.Join(t.TempDir(), "report.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	reader := &stubReader{err: errors.New("redis down")}
	w := NewReportWorker(reader, repo)

	if err := w.HandleBoardEvent(context.Background(), events.CardDeleted("c1")); err == nil {
		t.Fatalf("expected error so the event is requeued")
	}
}
