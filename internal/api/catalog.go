package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MikeSquared-Agency/Archetype/internal/broker"
	"github.com/MikeSquared-Agency/Archetype/internal/calibration"
	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
	"github.com/MikeSquared-Agency/Archetype/internal/scoring"
	"github.com/MikeSquared-Agency/Archetype/internal/store"
)

const (
	defaultBalanceSamples = 2000
	maxBalanceSamples     = 100000
)

type CatalogHandler struct {
	store   store.Store
	broker  *broker.Broker
	workers int
	logger  *slog.Logger
}

func NewCatalogHandler(s store.Store, b *broker.Broker, workers int, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{store: s, broker: b, workers: workers, logger: logger}
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	cat, err := h.store.GetCatalog(r.Context())
	if err != nil {
		h.logger.Error("failed to load catalog", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}
	if cat == nil {
		cat = &catalog.Catalog{Axes: []catalog.Axis{}, Questions: []catalog.Question{}, Archetypes: []catalog.Archetype{}}
	}
	writeJSON(w, http.StatusOK, cat)
}

// Put replaces the whole catalog.
func (h *CatalogHandler) Put(w http.ResponseWriter, r *http.Request) {
	var cat catalog.Catalog
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.broker.Save(r.Context(), &cat)
	if err != nil {
		var verr *catalog.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":   "invalid catalog",
				"details": verr.Errors,
			})
			return
		}
		h.logger.Error("failed to save catalog", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save catalog")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CatalogHandler) Calibrate(w http.ResponseWriter, r *http.Request) {
	var o calibration.Overrides
	present, err := decodeOptional(r, &o)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	overrides := &o
	if !present {
		overrides = nil
	}
	if err := h.broker.Tunables().With(overrides).Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.broker.Recalibrate(r.Context(), store.TriggerManual, overrides)
	if err != nil {
		h.logger.Error("calibration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "calibration failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *CatalogHandler) Balance(w http.ResponseWriter, r *http.Request) {
	samples := defaultBalanceSamples
	if v := r.URL.Query().Get("samples"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxBalanceSamples {
			writeError(w, http.StatusBadRequest, "samples must be between 1 and 100000")
			return
		}
		samples = n
	}

	cat, err := h.store.GetCatalog(r.Context())
	if err != nil {
		h.logger.Error("failed to load catalog", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	report, err := calibration.Balance(cat, samples, h.workers, nil)
	if err != nil {
		var serr *scoring.Error
		if errors.As(err, &serr) {
			writeError(w, http.StatusBadRequest, serr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, "balance failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *CatalogHandler) Calibrations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := h.store.ListCalibrations(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list calibrations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list calibrations")
		return
	}
	if runs == nil {
		runs = []*store.CalibrationRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}
