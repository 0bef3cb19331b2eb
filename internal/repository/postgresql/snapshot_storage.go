package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-bondvol/internal"
)

var ErrNoSnapshot = errors.New("no snapshot available")

type SnapshotStorage struct {
	pgpool *pgxpool.Pool
}

func NewSnapshotStorage(pgpool *pgxpool.Pool) *SnapshotStorage {
	return &SnapshotStorage{pgpool: pgpool}
}

// InsertSnapshot stores one computed snapshot with its per-maturity
// points. NaN volatilities go in as-is; double precision holds them.
func (s *SnapshotStorage) InsertSnapshot(ctx context.Context, snap internal.VolatilitySnapshot) error {
	if snap.Instrument == "" {
		return fmt.Errorf("instrument is empty")
	}
	if snap.WindowFrom.IsZero() || snap.WindowTo.IsZero() {
		return fmt.Errorf("snapshot window is empty")
	}

	tx, err := s.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
insert into vol_snapshot (instrument, window_from, window_to, row_count, computed_at)
values ($1, $2::date, $3::date, $4, $5)
returning id;
`, snap.Instrument.String(), snap.WindowFrom.String(), snap.WindowTo.String(), snap.Rows, snap.ComputedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert vol_snapshot: %w", err)
	}

	for maturity, vol := range snap.Volatility {
		maturity = strings.TrimSpace(maturity)
		if maturity == "" {
			continue
		}
		_, err := tx.Exec(ctx, `
insert into vol_snapshot_point (snapshot_id, maturity, volatility)
values ($1, $2::date, $3);
`, id, maturity, float64(vol))
		if err != nil {
			return fmt.Errorf("insert point %s=%v: %w", maturity, vol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetLatest returns the most recently computed snapshot for the
// instrument, or ErrNoSnapshot when none has been stored yet.
func (s *SnapshotStorage) GetLatest(ctx context.Context, instrument string) (internal.VolatilitySnapshot, error) {
	instrument = strings.ToUpper(strings.TrimSpace(instrument))
	if instrument == "" {
		return internal.VolatilitySnapshot{}, fmt.Errorf("instrument is empty")
	}

	var (
		id   int64
		snap internal.VolatilitySnapshot
		from string
		to   string
	)
	err := s.pgpool.QueryRow(ctx, `
select id,
  instrument,
  to_char(window_from, 'YYYY-MM-DD'),
  to_char(window_to, 'YYYY-MM-DD'),
  row_count,
  computed_at
from vol_snapshot
where instrument = $1
order by computed_at desc, id desc
limit 1;
`, instrument).Scan(&id, &snap.Instrument, &from, &to, &snap.Rows, &snap.ComputedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return internal.VolatilitySnapshot{}, ErrNoSnapshot
		}
		return internal.VolatilitySnapshot{}, fmt.Errorf("query latest snapshot: %w", err)
	}

	if snap.WindowFrom, err = internal.ParseDate(from); err != nil {
		return internal.VolatilitySnapshot{}, err
	}
	if snap.WindowTo, err = internal.ParseDate(to); err != nil {
		return internal.VolatilitySnapshot{}, err
	}

	rows, err := s.pgpool.Query(ctx, `
select to_char(maturity, 'YYYY-MM-DD'), volatility
from vol_snapshot_point
where snapshot_id = $1
order by maturity;
`, id)
	if err != nil {
		return internal.VolatilitySnapshot{}, fmt.Errorf("query snapshot points: %w", err)
	}
	defer rows.Close()

	snap.Volatility = make(map[string]internal.Vol)
	for rows.Next() {
		var (
			maturity string
			vol      float64
		)
		if err := rows.Scan(&maturity, &vol); err != nil {
			return internal.VolatilitySnapshot{}, fmt.Errorf("scan: %w", err)
		}
		snap.Volatility[maturity] = internal.Vol(vol)
	}
	return snap, rows.Err()
}
