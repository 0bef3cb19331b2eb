package logger

import (
	"context"

	"service-bondvol/internal"
)

type RunLogger interface {
	LogRun(ctx context.Context, source string, status *int, windowTo *internal.Date) error
}

type LoggerStorage interface {
	Insert(ctx context.Context, source string, status *int, windowTo *internal.Date) error
}
