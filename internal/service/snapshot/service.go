package snapshot

import (
	"context"
	"fmt"
	"time"

	"service-bondvol/internal"
)

type MarketClient interface {
	EnsureToken(ctx context.Context) (string, error)
	MarketByDate(ctx context.Context, date internal.Date) ([]internal.MarketRecord, error)
}

type BusinessCalendar interface {
	WindowEnding(today time.Time, offsetDays int) []internal.Date
}

type Storage interface {
	InsertSnapshot(ctx context.Context, snap internal.VolatilitySnapshot) error
}

// Service runs the acquisition-and-analysis pipeline: one fetch per
// business day in the window, strictly in ascending date order, then one
// volatility computation over the assembled dataset.
type Service struct {
	client     MarketClient
	cal        BusinessCalendar
	storage    Storage // nil disables persistence
	offsetDays int
	instrument internal.InstrumentType
}

func New(client MarketClient, cal BusinessCalendar, storage Storage, offsetDays int, instrument internal.InstrumentType) *Service {
	return &Service{
		client:     client,
		cal:        cal,
		storage:    storage,
		offsetDays: offsetDays,
		instrument: instrument,
	}
}

// Run fetches every business day in the window ending at today and
// returns the computed snapshot. Any token or fetch failure aborts the
// run with no partial result; nothing is retried.
func (s *Service) Run(ctx context.Context, today time.Time) (internal.VolatilitySnapshot, error) {
	dates := s.cal.WindowEnding(today, s.offsetDays)
	if len(dates) == 0 {
		return internal.VolatilitySnapshot{}, fmt.Errorf("empty business-day window ending %s", internal.NewDate(today))
	}

	var ds internal.Dataset
	for _, date := range dates {
		if _, err := s.client.EnsureToken(ctx); err != nil {
			return internal.VolatilitySnapshot{}, fmt.Errorf("ensure token: %w", err)
		}

		records, err := s.client.MarketByDate(ctx, date)
		if err != nil {
			return internal.VolatilitySnapshot{}, fmt.Errorf("fetch %s: %w", date, err)
		}
		ds.Append(date, records)
	}

	snap := internal.VolatilitySnapshot{
		Instrument: s.instrument,
		WindowFrom: dates[0],
		WindowTo:   dates[len(dates)-1],
		Rows:       ds.Len(),
		Volatility: ds.AnnualizedVolatility(s.instrument),
		ComputedAt: time.Now().UTC(),
	}

	if s.storage != nil {
		if err := s.storage.InsertSnapshot(ctx, snap); err != nil {
			return internal.VolatilitySnapshot{}, fmt.Errorf("store snapshot: %w", err)
		}
	}
	return snap, nil
}
