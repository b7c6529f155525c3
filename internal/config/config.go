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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	QA         QAConfig         `yaml:"qa" mapstructure:"qa"`
	Carbon     CarbonConfig     `yaml:"carbon" mapstructure:"carbon"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// IngestConfig configures the ingestion router.
type IngestConfig struct {
	MaxFileSize           int64 `yaml:"max_file_size" mapstructure:"max_file_size"`
	EnableContentAnalysis bool  `yaml:"enable_content_analysis" mapstructure:"enable_content_analysis"`
	TimeoutSecs           int   `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// StageConfig configures one processing stage.
type StageConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Priority    int    `yaml:"priority" mapstructure:"priority"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PipelineConfig configures the staged processing pipeline.
type PipelineConfig struct {
	Stages             []StageConfig `yaml:"stages" mapstructure:"stages"`
	ParallelProcessing bool          `yaml:"parallel_processing" mapstructure:"parallel_processing"`
}

// QAConfig configures the quality-control validator.
type QAConfig struct {
	OutlierThreshold     float64 `yaml:"outlier_threshold" mapstructure:"outlier_threshold"`
	OutlierMinPopulation int     `yaml:"outlier_min_population" mapstructure:"outlier_min_population"`
}

// CarbonConfig configures the carbon analytics engine.
type CarbonConfig struct {
	Industry  string  `yaml:"industry" mapstructure:"industry"`
	Revenue   float64 `yaml:"revenue" mapstructure:"revenue"`
	Employees int     `yaml:"employees" mapstructure:"employees"`
}

// MonitoringConfig configures the observability monitor.
type MonitoringConfig struct {
	MaxEvents          int `yaml:"max_events" mapstructure:"max_events"`
	SampleIntervalSecs int `yaml:"sample_interval_secs" mapstructure:"sample_interval_secs"`
}

// AnthropicConfig holds the optional upstream extractor settings. An empty
// key disables the AI extraction stage backend.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port          int     `yaml:"port" mapstructure:"port"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultStages is the stage plan used when none is configured.
func DefaultStages() []StageConfig {
	return []StageConfig{
		{Name: "preprocess", Enabled: true, Priority: 1, TimeoutSecs: 30},
		{Name: "extract", Enabled: true, Priority: 2, TimeoutSecs: 60},
		{Name: "validate", Enabled: true, Priority: 3, TimeoutSecs: 30},
		{Name: "enrich", Enabled: true, Priority: 4, TimeoutSecs: 45},
		{Name: "qa", Enabled: true, Priority: 5, TimeoutSecs: 30},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ESG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "esg-cli.db")
	v.SetDefault("ingest.max_file_size", 50*1024*1024)
	v.SetDefault("ingest.enable_content_analysis", true)
	v.SetDefault("ingest.timeout_secs", 120)
	v.SetDefault("pipeline.parallel_processing", false)
	v.SetDefault("qa.outlier_threshold", 1.5)
	v.SetDefault("qa.outlier_min_population", 10)
	v.SetDefault("carbon.industry", "General")
	v.SetDefault("monitoring.max_events", 10000)
	v.SetDefault("monitoring.sample_interval_secs", 30)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_per_second", 2)
	v.SetDefault("server.rate_burst", 5)
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

	if len(cfg.Pipeline.Stages) == 0 {
		cfg.Pipeline.Stages = DefaultStages()
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
