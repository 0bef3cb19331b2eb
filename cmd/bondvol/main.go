package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"service-bondvol/internal"
	"service-bondvol/internal/api/http/middleware"
	snapshothttp "service-bondvol/internal/api/http/snapshot"
	"service-bondvol/internal/calendar"
	"service-bondvol/internal/clients/anbima"
	"service-bondvol/internal/credentials"
	"service-bondvol/internal/repository/migrations"
	"service-bondvol/internal/repository/postgresql"
	"service-bondvol/internal/service/logger"
	snapshotsvc "service-bondvol/internal/service/snapshot"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// vendor client
	store := credentials.NewStore(cfg.TokenFile)
	client := anbima.New(store, credentials.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	if cfg.TokenURL != "" {
		client.TokenURL = cfg.TokenURL
	}

	// business-day calendar
	cal, err := calendar.Load(cfg.CalendarName)
	if err != nil {
		return fmt.Errorf("load calendar: %w", err)
	}

	instrument, err := internal.NewInstrumentType(cfg.Instrument)
	if err != nil {
		return fmt.Errorf("instrument type: %w", err)
	}

	// optional DB
	var (
		pool        *pgxpool.Pool
		snapStorage *postgresql.SnapshotStorage
		svcStorage  snapshotsvc.Storage
	)
	if cfg.DatabaseURL != "" {
		dbCtx, cancelDB := context.WithTimeout(ctx, 5*time.Second)
		defer cancelDB()

		pool, err = pgxpool.New(dbCtx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to db: %w", err)
		}
		defer pool.Close()

		if err := migrations.New(pool).Setup(dbCtx); err != nil {
			return fmt.Errorf("ensure tables: %w", err)
		}
		snapStorage = postgresql.NewSnapshotStorage(pool)
		svcStorage = snapStorage
	}

	svc := snapshotsvc.New(client, cal, svcStorage, cfg.OffsetBDays, instrument)

	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return fmt.Errorf("load location %s: %w", cfg.Location, err)
	}

	// one-shot mode: compute, print, exit
	if cfg.CronSpec == "" {
		snap, err := svc.Run(ctx, time.Now().In(loc))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	// serve mode: recompute on schedule, serve the latest snapshot
	scheduler := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)),
	)

	runLogger := logger.New(postgresql.NewRunLogStorage(pool))
	apiKeys := postgresql.NewAPIKeyStorage(pool, cfg.EncodingKey)

	handler := snapshothttp.New(snapStorage, runLogger, instrument)
	mux := http.NewServeMux()
	handler.Register(mux)
	protected := middleware.APIKeyAuth(apiKeys)(mux)

	g, gctx := errgroup.WithContext(ctx)

	recompute := func() {
		if snap, err := svc.Run(gctx, time.Now().In(loc)); err != nil {
			log.Printf("snapshot run failed: %v", err)
		} else {
			log.Printf("snapshot computed: instrument=%s window_to=%s maturities=%d",
				snap.Instrument, snap.WindowTo, len(snap.Volatility))
			_ = runLogger.LogRun(gctx, "cron", nil, &snap.WindowTo)
		}
	}

	// instant run on startup
	recompute()

	if _, err := scheduler.AddFunc(cfg.CronSpec, recompute); err != nil {
		return fmt.Errorf("add cron func: %w", err)
	}

	g.Go(func() error {
		return runCron(gctx, scheduler)
	})

	g.Go(func() error {
		return serveHTTP(gctx, ":"+cfg.HTTPPort, protected)
	})

	log.Println("Running. Stop with Ctrl+C / SIGTERM.")
	return g.Wait()
}

func runCron(ctx context.Context, c *cron.Cron) error {
	c.Start()
	defer func() {
		stopCtx := c.Stop()
		<-stopCtx.Done()
	}()

	<-ctx.Done()
	return nil
}

func serveHTTP(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.Printf("HTTP listening on %s", addr)
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
