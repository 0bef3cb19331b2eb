package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"service-bondvol/internal"
	"service-bondvol/internal/models"
	"service-bondvol/internal/repository/postgresql"
	"service-bondvol/internal/service/logger"
)

type LatestProvider interface {
	GetLatest(ctx context.Context, instrument string) (internal.VolatilitySnapshot, error)
}

type Handler struct {
	snapshots         LatestProvider
	logger            logger.RunLogger
	defaultInstrument internal.InstrumentType
}

func New(p LatestProvider, l logger.RunLogger, defaultInstrument internal.InstrumentType) *Handler {
	return &Handler{snapshots: p, logger: l, defaultInstrument: defaultInstrument}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/volatility", h.getVolatility)
}

func (h *Handler) getVolatility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		st := http.StatusMethodNotAllowed
		w.WriteHeader(st)
		_ = h.logger.LogRun(r.Context(), r.URL.Path, &st, nil)
		return
	}

	instrument := h.defaultInstrument
	if q := r.URL.Query().Get("instrument"); q != "" {
		it, err := internal.NewInstrumentType(q)
		if err != nil {
			st := writeErr(w, http.StatusBadRequest, models.BizError(models.CodeBadRequest, err.Error()))
			_ = h.logger.LogRun(r.Context(), r.URL.Path, &st, nil)
			return
		}
		instrument = it
	}

	snap, err := h.snapshots.GetLatest(r.Context(), instrument.String())
	if err != nil {
		status := http.StatusInternalServerError
		code := models.CodeInternal
		if errors.Is(err, postgresql.ErrNoSnapshot) {
			status = http.StatusNotFound
			code = models.CodeNotFound
		}
		st := writeErr(w, status, models.BizError(code, err.Error()))
		_ = h.logger.LogRun(r.Context(), r.URL.Path, &st, nil)
		return
	}

	st := http.StatusOK
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(snap)
	_ = h.logger.LogRun(r.Context(), r.URL.Path, &st, &snap.WindowTo)
}

func writeErr(w http.ResponseWriter, status int, bizErr *models.BusinessError) int {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(bizErr)
	return status
}
