package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
)

func writeCatalog(t *testing.T, name string) string {
	t.Helper()
	q := catalog.Question{ID: "q1", Text: "Do you plan ahead?", Scores: map[catalog.Choice]map[string]int{}}
	for i, c := range catalog.Choices {
		d := []int{2, 1, -1, -2}[i]
		q.Scores[c] = map[string]int{"planning": d, "spontaneity": -d}
	}
	cat := &catalog.Catalog{
		Axes:      []catalog.Axis{{Name: "planning", SortOrder: 1}, {Name: "spontaneity", SortOrder: 2}},
		Questions: []catalog.Question{q},
		Archetypes: []catalog.Archetype{
			{Name: "Owl", RawScores: map[string]int{"planning": 9, "spontaneity": 2}},
			{Name: "Fox", RawScores: map[string]int{"planning": 2, "spontaneity": 9}},
		},
		Public: true,
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, catalog.WriteFile(path, cat))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCalibrateCommand(t *testing.T) {
	in := writeCatalog(t, "catalog.yaml")
	out := filepath.Join(t.TempDir(), "calibrated.json")

	stdout, err := execute(t, "calibrate", "-c", in, "-o", out, "--samples", "200", "--iterations", "4", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 archetypes, 200 samples, 4 iterations")

	cat, err := catalog.LoadFile(out)
	require.NoError(t, err)
	for _, a := range cat.Archetypes {
		require.Len(t, a.CalibratedScores, 2, a.Name)
		for _, v := range a.CalibratedScores {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	}

	// input untouched when --out is given
	orig, err := catalog.LoadFile(in)
	require.NoError(t, err)
	assert.False(t, orig.Archetypes[0].HasCalibration())
}

func TestCalibrateCommand_InvalidTunables(t *testing.T) {
	in := writeCatalog(t, "catalog.json")
	_, err := execute(t, "calibrate", "-c", in, "-o", in, "--samples", "0", "--iterations", "4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid calibration tunables")

	// restore for later tests sharing the flag set
	_, err = execute(t, "calibrate", "-c", in, "-o", in, "--samples", "100", "--iterations", "1")
	require.NoError(t, err)
}

func TestBalanceCommand(t *testing.T) {
	in := writeCatalog(t, "catalog.json")
	stdout, err := execute(t, "balance", "-c", in, "--samples", "300", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ARCHETYPE")
	assert.Contains(t, stdout, "Owl")
	assert.Contains(t, stdout, "samples=300 calibrated=false")
}

func TestScoreCommand(t *testing.T) {
	in := writeCatalog(t, "catalog.json")
	answers := filepath.Join(t.TempDir(), "answers.json")
	require.NoError(t, os.WriteFile(answers, []byte(`{"q1":"yes"}`), 0o644))

	stdout, err := execute(t, "score", "-c", in, "-a", answers, "--policy", "euclidean")
	require.NoError(t, err)

	var res struct {
		Scores    map[string]float64 `json:"scores"`
		Archetype struct {
			Name string `json:"name"`
		} `json:"archetype"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, map[string]float64{"planning": 100, "spontaneity": 0}, res.Scores)
	assert.Equal(t, "Owl", res.Archetype.Name)
}

func TestScoreCommand_UnknownPolicy(t *testing.T) {
	in := writeCatalog(t, "catalog.json")
	_, err := execute(t, "score", "-c", in, "-a", in, "--policy", "manhattan")
	require.Error(t, err)

	_, err = execute(t, "score", "-c", in, "-a", in, "--policy", "euclidean")
	require.Error(t, err, "catalog file is not an answer set")
}

func TestPushCommand(t *testing.T) {
	var gotAuth string
	var got catalog.Catalog
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/catalog", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"assigned_ids":2,"calibration":{"run_id":"r1","skipped":false,"dead":0}}`))
	}))
	defer srv.Close()

	in := writeCatalog(t, "catalog.yaml")
	stdout, err := execute(t, "push", "-c", in, "--api", srv.URL+"/", "--token", "s3cret", "--dry-run=false")
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cret", gotAuth)
	assert.Len(t, got.Archetypes, 2)
	assert.Contains(t, stdout, "2 ids assigned")
	assert.Contains(t, stdout, "calibration r1 skipped=false dead=0")
}

func TestPushCommand_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	in := writeCatalog(t, "catalog.json")
	_, err := execute(t, "push", "-c", in, "--api", srv.URL, "--token", "wrong", "--dry-run=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server returned 401")
}

func TestPushCommand_DryRun(t *testing.T) {
	in := writeCatalog(t, "catalog.json")
	stdout, err := execute(t, "push", "-c", in, "--api", "http://127.0.0.1:1", "--token", "", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "catalog ok: 2 axes, 1 questions, 2 archetypes")
}
