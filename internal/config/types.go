package config

import "time"

// #region config
// Config is the process configuration: defaults, then the config file, then
// SENTENCER_* environment variables (a .env file is loaded first).
type Config struct {
	Rules     RulesConfig     `mapstructure:"rules"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Log       LogConfig       `mapstructure:"log"`
	Serve     ServeConfig     `mapstructure:"serve"`
}

// RulesConfig selects the rule table. An empty path uses the embedded table.
type RulesConfig struct {
	Path string `mapstructure:"path"`
}

// BatchConfig controls the batch runner.
type BatchConfig struct {
	Workers      int    `mapstructure:"workers" validate:"gte=1,lte=64"`
	Retries      int    `mapstructure:"retries" validate:"gte=0,lte=10"`
	Fallback     []int  `mapstructure:"fallback" validate:"len=2,dive,gte=0"`
	DefaultCrime string `mapstructure:"default_crime" validate:"required"`
}

// ExtractorConfig points at the label extraction service. An empty address
// disables extraction; records then need labels or structured fields.
type ExtractorConfig struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// LedgerConfig locates the SQLite run ledger.
type LedgerConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServeConfig configures the gRPC server.
type ServeConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// #endregion config
