package config

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ledgerline/finsight/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Memory     MemoryConfig     `yaml:"memory" mapstructure:"memory"`
	Index      IndexConfig      `yaml:"index" mapstructure:"index"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	QA         QAConfig         `yaml:"qa" mapstructure:"qa"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// MemoryConfig configures the correction store backend.
type MemoryConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// IndexConfig configures the embedded vector index.
type IndexConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	Collection string `yaml:"collection" mapstructure:"collection"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	Model     string  `yaml:"model" mapstructure:"model"`
	MaxTokens int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RPS       float64 `yaml:"rps" mapstructure:"rps"` // request rate limit
}

// ExtractionConfig configures field extraction.
type ExtractionConfig struct {
	TopKRetrieval  int           `yaml:"top_k_retrieval" mapstructure:"top_k_retrieval"`
	ScoreCutoff    float64       `yaml:"score_cutoff" mapstructure:"score_cutoff"`
	Concurrency    int           `yaml:"concurrency" mapstructure:"concurrency"`
	SchemaFile     string        `yaml:"schema_file" mapstructure:"schema_file"`
	Fields         []model.Field `yaml:"fields" mapstructure:"fields"`
	MonetaryFields []string      `yaml:"monetary_fields" mapstructure:"monetary_fields"`
}

// ValidationConfig holds the HITL trigger thresholds.
type ValidationConfig struct {
	RequireValidationBelow float64       `yaml:"require_validation_below" mapstructure:"require_validation_below"`
	AutoValidateAbove      float64       `yaml:"auto_validate_above" mapstructure:"auto_validate_above"`
	MissingFieldThreshold  int           `yaml:"missing_field_threshold" mapstructure:"missing_field_threshold"`
	CriticalFields         []string      `yaml:"critical_fields" mapstructure:"critical_fields"`
	PendingTTL             time.Duration `yaml:"pending_ttl" mapstructure:"pending_ttl"`
}

// QAConfig configures question answering.
type QAConfig struct {
	TopKRetrieval       int     `yaml:"top_k_retrieval" mapstructure:"top_k_retrieval"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
}

// ServerConfig configures the validation API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment, applies defaults, and
// validates the result. A malformed schema or threshold set is fatal here,
// never a per-request error.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FINSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("memory.driver", "sqlite")
	v.SetDefault("memory.database_url", "finsight.db")
	v.SetDefault("index.path", ".finsight/index")
	v.SetDefault("index.collection", "documents")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.rps", 5.0)
	v.SetDefault("extraction.top_k_retrieval", 3)
	v.SetDefault("extraction.score_cutoff", 0.0)
	v.SetDefault("extraction.concurrency", 4)
	v.SetDefault("validation.require_validation_below", 0.6)
	v.SetDefault("validation.auto_validate_above", 0.9)
	v.SetDefault("validation.missing_field_threshold", 3)
	v.SetDefault("validation.pending_ttl", "30m")
	v.SetDefault("qa.top_k_retrieval", 5)
	v.SetDefault("qa.confidence_threshold", 0.7)
	v.SetDefault("server.port", 8080)
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

	if cfg.Extraction.SchemaFile != "" {
		fields, err := LoadSchemaFile(cfg.Extraction.SchemaFile)
		if err != nil {
			return nil, err
		}
		cfg.Extraction.Fields = fields
	}
	if len(cfg.Extraction.Fields) == 0 {
		cfg.Extraction.Fields = DefaultSchema()
	}
	if len(cfg.Extraction.MonetaryFields) == 0 {
		cfg.Extraction.MonetaryFields = DefaultMonetaryFields()
	}
	if len(cfg.Validation.CriticalFields) == 0 {
		cfg.Validation.CriticalFields = DefaultCriticalFields()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadSchemaFile reads a field schema from a standalone YAML file.
func LoadSchemaFile(path string) ([]model.Field, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read schema file %s", path)
	}

	var doc struct {
		Fields []model.Field `yaml:"fields"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrapf(err, "config: parse schema file %s", path)
	}

	return doc.Fields, nil
}

// Validate checks thresholds and the field schema. Errors here abort startup.
func (c *Config) Validate() error {
	val := c.Validation
	if val.RequireValidationBelow < 0 || val.RequireValidationBelow > 1 {
		return eris.Errorf("config: require_validation_below %.2f out of [0,1]", val.RequireValidationBelow)
	}
	if val.AutoValidateAbove < 0 || val.AutoValidateAbove > 1 {
		return eris.Errorf("config: auto_validate_above %.2f out of [0,1]", val.AutoValidateAbove)
	}
	if val.RequireValidationBelow > val.AutoValidateAbove {
		return eris.Errorf("config: require_validation_below %.2f above auto_validate_above %.2f",
			val.RequireValidationBelow, val.AutoValidateAbove)
	}
	if val.MissingFieldThreshold < 0 {
		return eris.Errorf("config: missing_field_threshold %d negative", val.MissingFieldThreshold)
	}

	if c.Extraction.TopKRetrieval <= 0 {
		return eris.Errorf("config: top_k_retrieval %d must be positive", c.Extraction.TopKRetrieval)
	}
	if c.QA.ConfidenceThreshold < 0 || c.QA.ConfidenceThreshold > 1 {
		return eris.Errorf("config: qa confidence_threshold %.2f out of [0,1]", c.QA.ConfidenceThreshold)
	}

	seen := make(map[string]bool, len(c.Extraction.Fields))
	for _, f := range c.Extraction.Fields {
		if f.ID == "" {
			return eris.New("config: schema field with empty id")
		}
		if seen[f.ID] {
			return eris.Errorf("config: duplicate schema field %s", f.ID)
		}
		seen[f.ID] = true

		switch f.Type {
		case model.FieldTypeInteger, model.FieldTypeDecimal, model.FieldTypeString:
		default:
			return eris.Errorf("config: field %s has unknown type %q", f.ID, f.Type)
		}
	}

	for _, cf := range c.Validation.CriticalFields {
		if !seen[cf] {
			return eris.Errorf("config: critical field %s not in schema", cf)
		}
	}

	return nil
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
