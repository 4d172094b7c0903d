package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"record": { "minSampleDistance": 2.5, "resampleCount": 128 },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raceline.cfg.json"), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 2.5, viper.GetFloat64("record.minSampleDistance"))
	assert.Equal(t, 128, viper.GetInt("record.resampleCount"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raceline.cfg.json"), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./racelinelogs", viper.GetString("logsDir"))
	assert.Equal(t, "./racelinedata", viper.GetString("paths.dir"))
	assert.Equal(t, "raceline_paths", viper.GetString("paths.slot"))
	assert.Equal(t, "sqlite", viper.GetString("paths.backend"))
	assert.Equal(t, 1.0, viper.GetFloat64("record.minSampleDistance"))
	assert.Equal(t, 64, viper.GetInt("record.resampleCount"))
	assert.Equal(t, "shift", viper.GetString("editor.modifier"))
	assert.Equal(t, "", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "raceline-metrics", viper.GetString("influx.org"))
	assert.Equal(t, false, viper.GetBool("viewer.enabled"))
	assert.Equal(t, "ws://localhost:5050/live", viper.GetString("viewer.url"))
	assert.Equal(t, 60, viper.GetInt("sim.tickRate"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raceline.cfg.json"), []byte(`{}`), 0644))
	require.NoError(t, Load(dir))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "raceline", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raceline.cfg.json"), []byte(cfg), 0644))
	require.NoError(t, Load(dir))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetFloat(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testFloat", 0.5)
	assert.Equal(t, 0.5, GetFloat("testFloat"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}
