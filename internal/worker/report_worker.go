// Package worker folds board events into the SQLite report mirror.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LorenzoCW/dnd-investments/internal/core"
	"github.com/LorenzoCW/dnd-investments/internal/events"
	"github.com/LorenzoCW/dnd-investments/internal/report"
)

// SnapshotReader yields the authoritative board state. Events only carry
// ids; the worker re-fetches the full picture, as the sync worker did.
type SnapshotReader interface {
	Snapshot(ctx context.Context) (core.Snapshot, error)
}

// ReportWorker keeps the report mirror in step with the board.
type ReportWorker struct {
	source SnapshotReader
	repo   *report.Repository
}

func NewReportWorker(source SnapshotReader, repo *report.Repository) *ReportWorker {
	return &ReportWorker{source: source, repo: repo}
}

// HandleBoardEvent processes one event by re-mirroring the current board.
// A returned error requeues the event.
func (w *ReportWorker) HandleBoardEvent(ctx context.Context, ev events.BoardEvent) error {
	slog.InfoContext(ctx, "Processing board event",
		"type", ev.Type,
		"list_id", ev.ListID,
		"card_id", ev.CardID)

	snap, err := w.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetch board snapshot: %w", err)
	}
	if err := w.repo.SyncSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("sync report mirror: %w", err)
	}
	return nil
}

// StartupSync mirrors the current board once, catching up on anything
// missed while the worker was down.
func (w *ReportWorker) StartupSync(ctx context.Context) error {
	snap, err := w.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetch board snapshot: %w", err)
	}
	if err := w.repo.SyncSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("sync report mirror: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"lists", len(snap.Lists),
		"cards", len(snap.Cards))
	return nil
}
