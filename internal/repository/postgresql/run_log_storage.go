package postgresql

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"service-bondvol/internal"
)

type RunLogStorage struct {
	pgpool *pgxpool.Pool
}

func NewRunLogStorage(pgpool *pgxpool.Pool) *RunLogStorage {
	return &RunLogStorage{pgpool: pgpool}
}

func (s *RunLogStorage) Insert(ctx context.Context, source string, status *int, windowTo *internal.Date) error {
	source = strings.TrimSpace(source)
	if source == "" {
		source = "unknown"
	}

	var to *string
	if windowTo != nil && !windowTo.IsZero() {
		v := windowTo.String()
		to = &v
	}

	_, err := s.pgpool.Exec(ctx, `
insert into run_log (source, status, window_to)
values ($1, $2, $3::date);
`, source, status, to)
	if err != nil {
		return fmt.Errorf("insert run_log: %w", err)
	}
	return nil
}
