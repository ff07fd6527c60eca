package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/Archetype/internal/hermes"
	"github.com/MikeSquared-Agency/Archetype/internal/metrics"
	"github.com/MikeSquared-Agency/Archetype/internal/scoring"
	"github.com/MikeSquared-Agency/Archetype/internal/store"
)

type ResultsHandler struct {
	store      store.Store
	hermes     hermes.Client
	scorer     *scoring.Scorer
	metrics    *metrics.Metrics
	adminToken string
	logger     *slog.Logger
}

func NewResultsHandler(s store.Store, h hermes.Client, sc *scoring.Scorer, m *metrics.Metrics, adminToken string, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{store: s, hermes: h, scorer: sc, metrics: m, adminToken: adminToken, logger: logger}
}

type ResultRequest struct {
	// Answers maps question ID to one of yes, slightly_yes, slightly_no, no.
	Answers map[string]string `json:"answers"`
}

type ArchetypeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ResultResponse struct {
	Success    bool               `json:"success"`
	Scores     map[string]float64 `json:"scores"`
	Archetype  ArchetypeRef       `json:"archetype"`
	Distance   float64            `json:"distance"`
	Similarity float64            `json:"similarity"`
	Policy     scoring.Policy     `json:"policy"`
	Calibrated bool               `json:"calibrated"`
	TieSet     []string           `json:"tie_set,omitempty"`
}

func (h *ResultsHandler) Create(w http.ResponseWriter, r *http.Request) {
	cat, err := h.store.GetCatalog(r.Context())
	if err != nil {
		h.logger.Error("failed to load catalog", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}
	if (cat == nil || !cat.Public) && !isAdmin(r, h.adminToken) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req ResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.scorer.Score(cat, req.Answers)
	if err != nil {
		var serr *scoring.Error
		if errors.As(err, &serr) {
			h.metrics.ObserveResultError(string(serr.Kind))
			writeError(w, http.StatusBadRequest, serr.Message)
			return
		}
		h.logger.Error("scoring failed", "error", err)
		writeError(w, http.StatusInternalServerError, "scoring failed")
		return
	}

	match := res.Archetype
	h.metrics.ObserveResult(match.ArchetypeID)
	if h.hermes != nil {
		evt := hermes.ResultScoredEvent{
			ArchetypeID: match.ArchetypeID,
			Distance:    match.Distance,
			Similarity:  match.Similarity,
			Policy:      string(res.Policy),
			Calibrated:  match.Calibrated,
			Timestamp:   time.Now().UTC(),
		}
		if err := h.hermes.Publish(hermes.SubjectResultScored, evt); err != nil {
			h.logger.Warn("failed to publish result event", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, ResultResponse{
		Success:    true,
		Scores:     res.Scores,
		Archetype:  ArchetypeRef{ID: match.ArchetypeID, Name: match.ArchetypeName},
		Distance:   match.Distance,
		Similarity: match.Similarity,
		Policy:     res.Policy,
		Calibrated: match.Calibrated,
		TieSet:     match.TieSet,
	})
}
