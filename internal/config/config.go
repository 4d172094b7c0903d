package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// OTelConfig holds OpenTelemetry export settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName("raceline.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers default values for every known key. Split out
// so tests and embedded use can run without a config file on disk.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./racelinelogs")

	viper.SetDefault("paths.dir", "./racelinedata")
	viper.SetDefault("paths.slot", "raceline_paths")
	viper.SetDefault("paths.backend", "sqlite") // sqlite | postgres | file

	viper.SetDefault("record.minSampleDistance", 1.0)
	viper.SetDefault("record.resampleCount", 64)
	viper.SetDefault("record.defaultSpeed", 0.05)

	viper.SetDefault("editor.modifier", "shift")
	viper.SetDefault("editor.datum", "") // "lat,lon" of the world origin

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "raceline")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "raceline-metrics")

	viper.SetDefault("viewer.enabled", false)
	viper.SetDefault("viewer.url", "ws://localhost:5050/live")
	viper.SetDefault("viewer.secret", "")

	viper.SetDefault("sim.tickRate", 60)
	viper.SetDefault("sim.defaultPath", "")
	viper.SetDefault("sim.agents", 3)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "raceline")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
