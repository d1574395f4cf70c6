// Package config loads process configuration from the environment and an
// optional YAML file. The result is constructed once at startup and
// threaded explicitly into every component; nothing here is a global.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	"seismcp/internal/domain"
)

// Config is the immutable process configuration.
type Config struct {
	DataDir        string
	Limits         domain.Limits
	Provider       string
	TimeoutSeconds int
	MetricsListen  string
	LLM            LLMConfig
}

// LLMConfig configures the narration model used by the agent.
type LLMConfig struct {
	Model        string
	APIKey       string
	APIKeyEnvVar string
	BaseURL      string
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATA_DIR", domain.DefaultDataDir)
	v.SetDefault("MAX_SECONDS", domain.DefaultMaxSeconds)
	v.SetDefault("MAX_TRACES", domain.DefaultMaxTraces)
	v.SetDefault("MAX_TOTAL_SAMPLES", domain.DefaultMaxTotalSamples)
	v.SetDefault("MAX_ESTIMATED_BYTES", domain.DefaultMaxEstimatedBytes)
	v.SetDefault("FDSN_PROVIDER", domain.DefaultProvider)
	v.SetDefault("FDSN_TIMEOUT_SECONDS", domain.DefaultFDSNTimeoutSeconds)
	v.SetDefault("METRICS_LISTEN", domain.DefaultMetricsListen)
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_API_KEY_ENV", "OPENAI_API_KEY")
	v.SetDefault("LLM_BASE_URL", "")
}

// Load reads configuration from the environment, optionally merging a
// YAML file first so environment variables win.
func Load(path string) (Config, error) {
	v := newConfigViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		DataDir: v.GetString("DATA_DIR"),
		Limits: domain.Limits{
			MaxSeconds:        v.GetInt("MAX_SECONDS"),
			MaxTraces:         v.GetInt("MAX_TRACES"),
			MaxTotalSamples:   v.GetInt64("MAX_TOTAL_SAMPLES"),
			MaxEstimatedBytes: v.GetInt64("MAX_ESTIMATED_BYTES"),
		},
		Provider:       v.GetString("FDSN_PROVIDER"),
		TimeoutSeconds: v.GetInt("FDSN_TIMEOUT_SECONDS"),
		MetricsListen:  v.GetString("METRICS_LISTEN"),
		LLM: LLMConfig{
			Model:        v.GetString("LLM_MODEL"),
			APIKey:       v.GetString("LLM_API_KEY"),
			APIKeyEnvVar: v.GetString("LLM_API_KEY_ENV"),
			BaseURL:      v.GetString("LLM_BASE_URL"),
		},
	}

	if errs := validate(cfg); len(errs) > 0 {
		return Config{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

func validate(cfg Config) []string {
	var errs []string
	if strings.TrimSpace(cfg.DataDir) == "" {
		errs = append(errs, "DATA_DIR must not be empty")
	}
	if cfg.Limits.MaxSeconds <= 0 {
		errs = append(errs, "MAX_SECONDS must be > 0")
	}
	if cfg.Limits.MaxTraces <= 0 {
		errs = append(errs, "MAX_TRACES must be > 0")
	}
	if cfg.Limits.MaxTotalSamples <= 0 {
		errs = append(errs, "MAX_TOTAL_SAMPLES must be > 0")
	}
	if cfg.Limits.MaxEstimatedBytes <= 0 {
		errs = append(errs, "MAX_ESTIMATED_BYTES must be > 0")
	}
	if cfg.TimeoutSeconds <= 0 {
		errs = append(errs, "FDSN_TIMEOUT_SECONDS must be > 0")
	}
	return errs
}
