package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexsim/raceline/internal/logging"
)

func testManager() *logging.SlogManager {
	m := logging.NewSlogManager()
	m.Setup(os.Stderr, "error", nil)
	return m
}

func TestService_StartStop(t *testing.T) {
	svc := NewService(Dependencies{
		LogManager: testManager(),
		StatusPath: filepath.Join(t.TempDir(), "status.txt"),
		Interval:   5 * time.Millisecond,
		Snapshot:   func() Status { return Status{} },
	})

	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())

	// Start is idempotent while running.
	require.NoError(t, svc.Start())

	svc.Stop()
	assert.Eventually(t, func() bool { return !svc.IsRunning() },
		time.Second, 5*time.Millisecond)
}

func TestService_WritesStatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.txt")

	tick := int64(0)
	svc := NewService(Dependencies{
		LogManager: testManager(),
		StatusPath: path,
		Interval:   5 * time.Millisecond,
		Snapshot: func() Status {
			tick++
			return Status{
				Session:     "20260825_143005",
				Tick:        tick,
				Agents:      3,
				StoredPaths: 2,
			}
		},
	})
	require.NoError(t, svc.Start())
	defer svc.Stop()

	var status Status
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		if err != nil || len(data) == 0 {
			return false
		}
		return json.Unmarshal(data, &status) == nil && status.Tick > 0
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "20260825_143005", status.Session)
	assert.Equal(t, 3, status.Agents)
	assert.Equal(t, 2, status.StoredPaths)
	assert.False(t, status.Time.IsZero())
}

func TestService_DefaultInterval(t *testing.T) {
	svc := NewService(Dependencies{
		LogManager: testManager(),
		StatusPath: filepath.Join(t.TempDir(), "status.txt"),
		Snapshot:   func() Status { return Status{} },
	})
	assert.Equal(t, time.Second, svc.deps.Interval)
}
