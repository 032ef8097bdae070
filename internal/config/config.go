package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is reported by /health and /config.
const Version = "0.1.0"

// Mode values select the spatial backend.
const (
	ModeLocal   = "local"   // in-memory GeoJSON datasets
	ModePostGIS = "postgis" // PostGIS-backed spatial queries
)

// Config holds the full application configuration.
type Config struct {
	Mode     string         `yaml:"mode" mapstructure:"mode"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Risk     RiskConfig     `yaml:"risk" mapstructure:"risk"`
	Shelter  ShelterConfig  `yaml:"shelter" mapstructure:"shelter"`
	Tiles    TilesConfig    `yaml:"tiles" mapstructure:"tiles"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port      int     `yaml:"port" mapstructure:"port"`
	StaticDir string  `yaml:"static_dir" mapstructure:"static_dir"`
	DataDir   string  `yaml:"data_dir" mapstructure:"data_dir"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second, 0 disables limiting
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// DataConfig locates the static GeoJSON datasets loaded at startup.
type DataConfig struct {
	GridFile      string `yaml:"grid_file" mapstructure:"grid_file"`
	BuildingsFile string `yaml:"buildings_file" mapstructure:"buildings_file"`
	HazardFile    string `yaml:"hazard_file" mapstructure:"hazard_file"`
	SheltersFile  string `yaml:"shelters_file" mapstructure:"shelters_file"`
}

// RiskConfig configures the risk engine.
type RiskConfig struct {
	WeightsFile     string  `yaml:"weights_file" mapstructure:"weights_file"`
	TopContributors int     `yaml:"top_contributors" mapstructure:"top_contributors"`
	NearestFallback bool    `yaml:"nearest_fallback" mapstructure:"nearest_fallback"`
	MaxFallbackKm   float64 `yaml:"max_fallback_km" mapstructure:"max_fallback_km"`
}

// ShelterConfig configures the shelter locator.
type ShelterConfig struct {
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int `yaml:"max_limit" mapstructure:"max_limit"`
}

// TilesConfig configures the vector tile responder.
type TilesConfig struct {
	ArchivePath  string `yaml:"archive_path" mapstructure:"archive_path"`
	CacheSize    int    `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTLMins int    `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
}

// DatabaseConfig holds PostGIS connection settings (postgis mode only).
type DatabaseConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RISKMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("mode", ModeLocal)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.static_dir", "web")
	v.SetDefault("server.data_dir", "data")
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("data.grid_file", "data/mock/grid_500m.geojson")
	v.SetDefault("data.buildings_file", "data/mock/buildings.geojson")
	v.SetDefault("data.hazard_file", "data/mock/hazard_liq.geojson")
	v.SetDefault("data.shelters_file", "data/mock/shelters.geojson")
	v.SetDefault("risk.weights_file", "config/weights.json")
	v.SetDefault("risk.top_contributors", 3)
	v.SetDefault("risk.nearest_fallback", false)
	v.SetDefault("risk.max_fallback_km", 1.0)
	v.SetDefault("shelter.default_limit", 3)
	v.SetDefault("shelter.max_limit", 10)
	v.SetDefault("tiles.archive_path", "data/tiles/risk.mbtiles")
	v.SetDefault("tiles.cache_size", 1000)
	v.SetDefault("tiles.cache_ttl_mins", 60)
	v.SetDefault("database.url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Mode != ModeLocal && cfg.Mode != ModePostGIS {
		return nil, eris.Errorf("config: unknown mode %q", cfg.Mode)
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
