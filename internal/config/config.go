// Package config loads application configuration from file and environment
// and wires up the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Gazetteer GazetteerConfig `yaml:"gazetteer" mapstructure:"gazetteer"`
	Geocoder  GeocoderConfig  `yaml:"geocoder" mapstructure:"geocoder"`
	Resolver  ResolverConfig  `yaml:"resolver" mapstructure:"resolver"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GazetteerConfig points at the offline GeoNames reference files.
type GazetteerConfig struct {
	CitiesPath    string `yaml:"cities_path" mapstructure:"cities_path"`
	CountriesPath string `yaml:"countries_path" mapstructure:"countries_path"`
}

// GeocoderConfig configures the online geocoding fallback.
type GeocoderConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CachePath   string  `yaml:"cache_path" mapstructure:"cache_path"`
}

// ResolverConfig configures the resolution strategy.
type ResolverConfig struct {
	FuzzyThreshold int `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
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
	v.SetEnvPrefix("GEORESOLVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("gazetteer.cities_path", "data/cities500.txt")
	v.SetDefault("gazetteer.countries_path", "data/countryInfo.txt")
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "georesolve/1.0 (github.com/sells-group/georesolve)")
	v.SetDefault("geocoder.rate_limit", 1.0)
	v.SetDefault("geocoder.max_retries", 2)
	v.SetDefault("geocoder.timeout_secs", 30)
	v.SetDefault("resolver.fuzzy_threshold", 90)
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
