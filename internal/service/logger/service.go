package logger

import (
	"context"
	"fmt"
	"strings"

	"service-bondvol/internal"
)

// DBRunLogger records pipeline runs and API requests in the run log
// table. Sources are normalized so "/api/v1/volatility" and "cron" land
// in the same column cleanly.
type DBRunLogger struct {
	storage LoggerStorage
}

func New(storage LoggerStorage) *DBRunLogger {
	return &DBRunLogger{storage: storage}
}

func (l *DBRunLogger) LogRun(ctx context.Context, source string, status *int, windowTo *internal.Date) error {
	s := strings.TrimSpace(source)
	s = strings.Trim(s, "/")
	if s == "" {
		s = "unknown"
	}

	if err := l.storage.Insert(ctx, s, status, windowTo); err != nil {
		return fmt.Errorf("log run: %w", err)
	}
	return nil
}
