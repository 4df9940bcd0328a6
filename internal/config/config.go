package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/danielpatrickdp/sentencing-engine/internal/batch"
	"github.com/danielpatrickdp/sentencing-engine/internal/interval"
	"github.com/danielpatrickdp/sentencing-engine/internal/labels"
)

const (
	configName = "sentencer"
	envPrefix  = "SENTENCER"
)

// validate caches struct info across calls.
var validate = validator.New()

// #region defaults
// SetDefaults registers every key so environment variables can override it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("rules.path", "")
	v.SetDefault("batch.workers", 8)
	v.SetDefault("batch.retries", 3)
	v.SetDefault("batch.fallback", []int{6, 12})
	v.SetDefault("batch.default_crime", "theft")
	v.SetDefault("extractor.addr", "")
	v.SetDefault("extractor.timeout", 60*time.Second)
	v.SetDefault("ledger.path", "sentencer.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("serve.addr", ":50071")
}

// #endregion defaults

// #region load
// Load reads configuration into v. cfgFile, when set, must exist; otherwise
// ./sentencer.yaml and $HOME/sentencer.yaml are tried and may be absent.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and the fallback ordering.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Batch.Fallback[0] > c.Batch.Fallback[1] {
		return fmt.Errorf("invalid config: batch.fallback %v is not ordered", c.Batch.Fallback)
	}
	return nil
}

// #endregion load

// #region conversions
// RunnerConfig maps the batch keys onto the runner's settings.
func (c Config) RunnerConfig() batch.RunnerConfig {
	rc := batch.DefaultRunnerConfig()
	rc.Workers = c.Batch.Workers
	rc.Retries = c.Batch.Retries
	rc.ExtractTimeout = c.Extractor.Timeout
	rc.Fallback = interval.Interval{Low: c.Batch.Fallback[0], High: c.Batch.Fallback[1]}
	return rc
}

// ParserConfig maps the batch keys onto the label parser's settings.
func (c Config) ParserConfig() labels.ParserConfig {
	return labels.ParserConfig{DefaultCrime: c.Batch.DefaultCrime}
}

// #endregion conversions
