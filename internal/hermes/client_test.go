package hermes

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamConfig(t *testing.T) {
	cfg := StreamConfig()
	assert.Equal(t, StreamName, cfg.Name)
	assert.Equal(t, 720*time.Hour, cfg.MaxAge)
	assert.Equal(t, jetstream.FileStorage, cfg.Storage)
	assert.ElementsMatch(t, []string{SubjectCatalogSaved, SubjectCatalogCalibrated, SubjectResultScored}, cfg.Subjects)

	cfg.Subjects[0] = "changed"
	assert.Equal(t, SubjectCatalogSaved, StreamConfig().Subjects[0])
}

func TestStreamed(t *testing.T) {
	assert.True(t, Streamed(SubjectResultScored))
	assert.True(t, Streamed(SubjectCatalogSaved))
	assert.False(t, Streamed(SubjectCalibrationRequest))
	assert.False(t, Streamed("archetype.>"))
}

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(SubjectResultScored, ResultScoredEvent{ArchetypeID: "heron"})
	require.NoError(t, err)
	assert.Equal(t, SubjectResultScored, msg.Subject)
	assert.Equal(t, "application/json", msg.Header.Get("Content-Type"))

	var evt ResultScoredEvent
	require.NoError(t, json.Unmarshal(msg.Data, &evt))
	assert.Equal(t, "heron", evt.ArchetypeID)

	_, err = NewMessage(SubjectResultScored, func() {})
	assert.ErrorContains(t, err, "encode "+SubjectResultScored)
}
