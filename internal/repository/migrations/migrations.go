package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Migrations struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Migrations {
	return &Migrations{pool: pool}
}

func (m *Migrations) Setup(ctx context.Context) error {
	if err := m.setupSnapshotTables(ctx); err != nil {
		return fmt.Errorf("setup vol_snapshot: %w", err)
	}
	if err := m.setupRunLogTable(ctx); err != nil {
		return fmt.Errorf("setup run_log: %w", err)
	}
	if err := m.setupAPIKeysTable(ctx); err != nil {
		return fmt.Errorf("setup api_keys: %w", err)
	}
	return nil
}

func (m *Migrations) setupSnapshotTables(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
create table if not exists vol_snapshot (
  id          bigserial primary key,
  instrument  text not null,
  window_from date not null,
  window_to   date not null,
  row_count   integer not null,
  computed_at timestamptz not null default now()
);

create index if not exists idx_vol_snapshot_lookup
  on vol_snapshot (instrument, computed_at desc);

create table if not exists vol_snapshot_point (
  snapshot_id bigint not null references vol_snapshot (id) on delete cascade,
  maturity    date not null,
  volatility  double precision,
  primary key (snapshot_id, maturity)
);
`)
	if err != nil {
		return fmt.Errorf("ensure snapshot tables: %w", err)
	}
	return nil
}

func (m *Migrations) setupRunLogTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
create table if not exists run_log (
  id         bigserial primary key,
  source     text not null,
  status     integer,
  window_to  date,
  created_at timestamptz not null default now()
);

create index if not exists idx_run_log_created_at
  on run_log (created_at desc);

create index if not exists idx_run_log_source_created_at
  on run_log (source, created_at desc);
`)
	if err != nil {
		return fmt.Errorf("ensure table run_log: %w", err)
	}
	return nil
}

func (m *Migrations) setupAPIKeysTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
create table if not exists api_keys (
  key_hash   text primary key,
  is_active  boolean not null default true,
  created_at timestamptz not null default now()
);
`)
	if err != nil {
		return fmt.Errorf("ensure table api_keys: %w", err)
	}
	return nil
}
