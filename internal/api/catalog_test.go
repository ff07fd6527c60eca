package api

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Archetype/internal/calibration"
	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
	"github.com/MikeSquared-Agency/Archetype/internal/store"
)

func TestGetCatalogEmpty(t *testing.T) {
	router := newTestRouter(store.NewMemoryStore(nil), nil, testToken)

	w := doRequest(router, "GET", "/api/v1/catalog", testToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"components":[],"questions":[],"archetypes":[],"public":false,"updated_at":"0001-01-01T00:00:00Z"}`, w.Body.String())
}

func TestGetCatalogStoreError(t *testing.T) {
	ms := &MockStore{}
	ms.On("GetCatalog", mock.Anything).Return(nil, errors.New("db down"))
	router := newTestRouter(ms, nil, testToken)

	w := doRequest(router, "GET", "/api/v1/catalog", testToken, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPutCatalogRejectsInvalid(t *testing.T) {
	ms := store.NewMemoryStore(nil)
	router := newTestRouter(ms, nil, testToken)

	cat := mirrorCatalog(true)
	cat.Axes[1].Name = "A"
	w := doRequest(router, "PUT", "/api/v1/catalog", testToken, cat)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error   string               `json:"error"`
		Details []catalog.FieldError `json:"details"`
	}
	decodeBody(t, w, &body)
	assert.Equal(t, "invalid catalog", body.Error)
	require.NotEmpty(t, body.Details)
	assert.Equal(t, "Axes[1].Name", body.Details[0].Field)

	stored, err := ms.GetCatalog(t.Context())
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestPutCatalogBadBody(t *testing.T) {
	router := newTestRouter(store.NewMemoryStore(nil), nil, testToken)
	w := doRequest(router, "PUT", "/api/v1/catalog", testToken, "[1,2")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalibrateEmptyStoreSkips(t *testing.T) {
	ms := store.NewMemoryStore(nil)
	router := newTestRouter(ms, nil, testToken)

	w := doRequest(router, "POST", "/api/v1/catalog/calibrate", testToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report calibration.Report
	decodeBody(t, w, &report)
	assert.True(t, report.Skipped)

	runs, err := ms.ListCalibrations(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Skipped)
	assert.Equal(t, store.TriggerManual, runs[0].Trigger)
}

func TestCalibrateWithOverrides(t *testing.T) {
	ms := store.NewMemoryStore(mirrorCatalog(false))
	router := newTestRouter(ms, nil, testToken)

	w := doRequest(router, "POST", "/api/v1/catalog/calibrate", testToken, map[string]int{"sample_count": 120, "iterations": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report calibration.Report
	decodeBody(t, w, &report)
	assert.False(t, report.Skipped)
	assert.Equal(t, 120, report.Samples)
	assert.Equal(t, 3, report.Iterations)

	stored, err := ms.GetCatalog(t.Context())
	require.NoError(t, err)
	for _, a := range stored.Archetypes {
		assert.Len(t, a.CalibratedScores, 2, a.ID)
	}
}

func TestBalance(t *testing.T) {
	t.Run("bad samples", func(t *testing.T) {
		router := newTestRouter(store.NewMemoryStore(mirrorCatalog(false)), nil, testToken)
		for _, q := range []string{"0", "-3", "abc", "100001"} {
			w := doRequest(router, "GET", "/api/v1/catalog/balance?samples="+q, testToken, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		router := newTestRouter(store.NewMemoryStore(nil), nil, testToken)
		w := doRequest(router, "GET", "/api/v1/catalog/balance", testToken, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("report", func(t *testing.T) {
		router := newTestRouter(store.NewMemoryStore(mirrorCatalog(false)), nil, testToken)
		w := doRequest(router, "GET", "/api/v1/catalog/balance?samples=400", testToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var report calibration.BalanceReport
		decodeBody(t, w, &report)
		assert.Equal(t, 400, report.Samples)
		assert.False(t, report.Calibrated)
		require.Len(t, report.Shares, 2)

		total := 0
		for _, s := range report.Shares {
			total += s.Count
		}
		assert.Equal(t, 400, total)
	})
}

func TestCalibrationsList(t *testing.T) {
	t.Run("empty is an array", func(t *testing.T) {
		router := newTestRouter(store.NewMemoryStore(nil), nil, testToken)
		w := doRequest(router, "GET", "/api/v1/catalog/calibrations", testToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("limit is passed through", func(t *testing.T) {
		ms := &MockStore{}
		runs := []*store.CalibrationRun{{Trigger: store.TriggerSave, StartedAt: time.Now()}}
		ms.On("ListCalibrations", mock.Anything, 5).Return(runs, nil)
		router := newTestRouter(ms, nil, testToken)

		w := doRequest(router, "GET", "/api/v1/catalog/calibrations?limit=5", testToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got []store.CalibrationRun
		decodeBody(t, w, &got)
		require.Len(t, got, 1)
		assert.Equal(t, store.TriggerSave, got[0].Trigger)
		ms.AssertExpectations(t)
	})
}
