package telemetry

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexsim/raceline/pkg/core"
)

// backupManager returns a manager in degraded mode writing line
// protocol into buf through gzip.
func backupManager(buf *bytes.Buffer) *Manager {
	m := NewManager(zerolog.Nop(), "unused")
	m.BackupWriter = gzip.NewWriter(buf)
	return m
}

func gunzip(t *testing.T, buf *bytes.Buffer) string {
	t.Helper()
	r, err := gzip.NewReader(buf)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestWriteAgentState_BackupFallback(t *testing.T) {
	var buf bytes.Buffer
	m := backupManager(&buf)

	err := m.WriteAgentState(context.Background(), "car1", "loop1",
		core.Point3{X: 1.5, Y: 0, Z: -2}, 0.25, 0.1, false)
	require.NoError(t, err)
	require.NoError(t, m.BackupWriter.Close())

	out := gunzip(t, &buf)
	assert.Contains(t, out, "agent_state")
	assert.Contains(t, out, "agent=car1")
	assert.Contains(t, out, "path=loop1")
	assert.Contains(t, out, "progress=0.25")
}

func TestWriteRecorderStats_BackupFallback(t *testing.T) {
	var buf bytes.Buffer
	m := backupManager(&buf)

	err := m.WriteRecorderStats(context.Background(), "session_a", 120, 64, true)
	require.NoError(t, err)
	require.NoError(t, m.BackupWriter.Close())

	out := gunzip(t, &buf)
	assert.Contains(t, out, "recorder_session")
	assert.Contains(t, out, "session=session_a")
	assert.Contains(t, out, "raw_points=120i")
	assert.Contains(t, out, "stored_points=64i")
}

func TestWritePoint_NoClientNoBackup(t *testing.T) {
	m := NewManager(zerolog.Nop(), "unused")

	err := m.WriteAgentState(context.Background(), "car1", "", core.Point3{}, 0, 0, false)
	assert.Error(t, err)
}
