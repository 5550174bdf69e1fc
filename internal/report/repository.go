// Package report maintains a SQLite mirror of the board's current cards
// and serves monthly realized/projected aggregates from it. It keeps only
// current state, no history.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/LorenzoCW/dnd-investments/internal/core"

	_ "modernc.org/sqlite"
)

type (
	// ListTotal aggregates one list for one month.
	ListTotal struct {
		ListID         string
		Title          string
		RealizedCents  int64
		ProjectedCents int64
	}

	// MonthOverview is the realized/projected breakdown for one month.
	MonthOverview struct {
		Year           int
		Month          int
		RealizedCents  int64
		ProjectedCents int64
		ByList         []ListTotal
	}
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SyncSnapshot replaces the mirrored state with the given snapshot in one
// transaction, so a half-applied snapshot is never visible.
func (r *Repository) SyncSnapshot(ctx context.Context, snap core.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM card_state`); err != nil {
		return fmt.Errorf("clear card state: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM list_state`); err != nil {
		return fmt.Errorf("clear list state: %w", err)
	}

	for _, l := range snap.Lists {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO list_state (list_id, title) VALUES (?, ?)`,
			l.ID, l.Title); err != nil {
			return fmt.Errorf("insert list %s: %w", l.ID, err)
		}
	}
	now := time.Now().UTC()
	for _, c := range snap.Cards {
		projection := 0
		if c.IsProjection {
			projection = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO card_state (card_id, list_id, amount_cents, occurred_at, is_projection, synced_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.ListID, c.Amount.Cents, c.OccurredAt.UTC(), projection, now); err != nil {
			return fmt.Errorf("insert card %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync transaction: %w", err)
	}
	return nil
}

// MonthOverview returns totals for cards whose occurred_at falls in the
// given year and month, split into realized and projected, per list.
func (r *Repository) MonthOverview(ctx context.Context, year, month int) (MonthOverview, error) {
	overview := MonthOverview{Year: year, Month: month}
	if month < 1 || month > 12 {
		return overview, core.ErrInvalidMonthRange
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.list_id,
		       COALESCE(l.title, ''),
		       COALESCE(SUM(CASE WHEN c.is_projection = 0 THEN c.amount_cents ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN c.is_projection = 1 THEN c.amount_cents ELSE 0 END), 0)
		FROM card_state c
		LEFT JOIN list_state l ON l.list_id = c.list_id
		WHERE c.occurred_at >= ? AND c.occurred_at < ?
		GROUP BY c.list_id, l.title
		ORDER BY c.list_id`,
		from, to)
	if err != nil {
		return overview, fmt.Errorf("query month overview: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lt ListTotal
		if err := rows.Scan(&lt.ListID, &lt.Title, &lt.RealizedCents, &lt.ProjectedCents); err != nil {
			return overview, fmt.Errorf("scan list total: %w", err)
		}
		overview.RealizedCents += lt.RealizedCents
		overview.ProjectedCents += lt.ProjectedCents
		overview.ByList = append(overview.ByList, lt)
	}
	if err := rows.Err(); err != nil {
		return overview, fmt.Errorf("iterate list totals: %w", err)
	}
	return overview, nil
}

// CardCount returns the number of mirrored cards, mainly for health checks.
func (r *Repository) CardCount(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM card_state`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}
