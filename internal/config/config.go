// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	LLM() LLMRouterConfig
	Analysis() AnalysisConfig
	Output() OutputConfig
	Metrics() MetricsConfig

	// Output Setters (driven by CLI flags)
	SetOutputDir(dir string)
	SetReportFormat(format string)

	// Metrics Setters
	SetMetricsTextfile(path string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	LLMCfg      LLMRouterConfig `mapstructure:"llm" yaml:"llm"`
	AnalysisCfg AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
	OutputCfg   OutputConfig    `mapstructure:"output" yaml:"output"`
	MetricsCfg  MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) LLM() LLMRouterConfig     { return c.LLMCfg }
func (c *Config) Analysis() AnalysisConfig { return c.AnalysisCfg }
func (c *Config) Output() OutputConfig     { return c.OutputCfg }
func (c *Config) Metrics() MetricsConfig   { return c.MetricsCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetOutputDir(dir string)        { c.OutputCfg.Dir = dir }
func (c *Config) SetReportFormat(format string)  { c.OutputCfg.ReportFormat = format }
func (c *Config) SetMetricsTextfile(path string) { c.MetricsCfg.Textfile = path }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGroq   LLMProvider = "groq"
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
)

// LLMRouterConfig configures the model routing logic.
type LLMRouterConfig struct {
	DefaultFastModel     string                    `mapstructure:"default_fast_model" yaml:"default_fast_model"`
	DefaultPowerfulModel string                    `mapstructure:"default_powerful_model" yaml:"default_powerful_model"`
	Models               map[string]LLMModelConfig `mapstructure:"models" yaml:"models"`
	// CallTimeout bounds every single inference call. Expiry is a model timeout.
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
	// RequestsPerMinute throttles outbound calls per client. 0 disables throttling.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// LLMModelConfig defines the configuration for a single LLM.
type LLMModelConfig struct {
	Provider    LLMProvider `mapstructure:"provider" yaml:"provider"`
	Model       string      `mapstructure:"model" yaml:"model"`
	APIKey      string      `mapstructure:"api_key" yaml:"-"`
	Endpoint    string      `mapstructure:"endpoint" yaml:"endpoint"`
	Temperature float32     `mapstructure:"temperature" yaml:"temperature"`
	TopP        float32     `mapstructure:"top_p" yaml:"top_p"`
	MaxTokens   int         `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// ToolConfig configures one external analysis tool.
type ToolConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args"`
}

// AnalysisConfig holds settings for the QA analyzers.
type AnalysisConfig struct {
	Formatter   ToolConfig `mapstructure:"formatter" yaml:"formatter"`
	Linter      ToolConfig `mapstructure:"linter" yaml:"linter"`
	TypeChecker ToolConfig `mapstructure:"type_checker" yaml:"type_checker"`
	// SyntaxFallback enables the built-in tree-sitter parser when the type checker is unavailable.
	SyntaxFallback bool `mapstructure:"syntax_fallback" yaml:"syntax_fallback"`
	// IgnoreRules are linter rule code prefixes that are never reported.
	IgnoreRules []string      `mapstructure:"ignore_rules" yaml:"ignore_rules"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheSize   int           `mapstructure:"cache_size" yaml:"cache_size"`
}

// OutputConfig controls where artifacts and run reports go.
type OutputConfig struct {
	Dir          string `mapstructure:"dir" yaml:"dir"`
	ReportFormat string `mapstructure:"report_format" yaml:"report_format"`
}

// MetricsConfig configures the Prometheus text file export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "codesmith")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- LLM --
	v.SetDefault("llm.default_fast_model", "groq-fast")
	v.SetDefault("llm.default_powerful_model", "groq-powerful")
	v.SetDefault("llm.models", map[string]interface{}{
		"groq-fast": map[string]interface{}{
			"provider":    string(ProviderGroq),
			"model":       "llama-3.1-8b-instant",
			"temperature": 0.0,
		},
		"groq-powerful": map[string]interface{}{
			"provider":    string(ProviderGroq),
			"model":       "llama-3.3-70b-versatile",
			"temperature": 0.0,
		},
	})
	v.SetDefault("llm.call_timeout", "2m")
	v.SetDefault("llm.requests_per_minute", 30)

	// -- Analysis --
	v.SetDefault("analysis.formatter.enabled", true)
	v.SetDefault("analysis.formatter.command", "black")
	v.SetDefault("analysis.linter.enabled", true)
	v.SetDefault("analysis.linter.command", "ruff")
	v.SetDefault("analysis.type_checker.enabled", true)
	v.SetDefault("analysis.type_checker.command", "mypy")
	v.SetDefault("analysis.syntax_fallback", true)
	v.SetDefault("analysis.ignore_rules", []string{"D", "F401", "N"})
	v.SetDefault("analysis.timeout", "60s")
	v.SetDefault("analysis.cache_size", 128)

	// -- Output --
	v.SetDefault("output.dir", "generated_code")
	v.SetDefault("output.report_format", "yaml")

	// -- Metrics --
	v.SetDefault("metrics.textfile", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.resolveAPIKeys()

	dir, err := homedir.Expand(cfg.OutputCfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand output.dir: %w", err)
	}
	cfg.OutputCfg.Dir = dir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// providerKeyEnv maps each provider onto the conventional environment
// variable holding its API key.
var providerKeyEnv = map[LLMProvider]string{
	ProviderGroq:   "GROQ_API_KEY",
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderGemini: "GEMINI_API_KEY",
}

// resolveAPIKeys fills empty model API keys from the provider's environment
// variable. Keys in the config file take precedence.
func (c *Config) resolveAPIKeys() {
	for name, m := range c.LLMCfg.Models {
		if m.APIKey != "" {
			continue
		}
		if env, ok := providerKeyEnv[m.Provider]; ok {
			m.APIKey = os.Getenv(env)
			c.LLMCfg.Models[name] = m
		}
	}
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.LLMCfg.Validate(); err != nil {
		return fmt.Errorf("llm configuration invalid: %w", err)
	}
	if c.AnalysisCfg.Timeout <= 0 {
		return fmt.Errorf("analysis.timeout must be a positive duration")
	}
	if c.AnalysisCfg.CacheSize < 0 {
		return fmt.Errorf("analysis.cache_size must not be negative")
	}
	if strings.TrimSpace(c.OutputCfg.Dir) == "" {
		return fmt.Errorf("output.dir is a required configuration field")
	}
	switch c.OutputCfg.ReportFormat {
	case "yaml", "json", "sarif":
	default:
		return fmt.Errorf("output.report_format must be one of yaml, json, sarif; got %q", c.OutputCfg.ReportFormat)
	}
	return nil
}

// Validate checks the router configuration: both default models must exist
// and use a known provider.
func (r *LLMRouterConfig) Validate() error {
	if r.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be a positive duration")
	}
	if r.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative")
	}
	for _, name := range []string{r.DefaultFastModel, r.DefaultPowerfulModel} {
		m, ok := r.Models[name]
		if !ok {
			return fmt.Errorf("default model %q is not defined in llm.models", name)
		}
		if _, known := providerKeyEnv[m.Provider]; !known {
			return fmt.Errorf("model %q has unsupported provider %q", name, m.Provider)
		}
		if m.Model == "" {
			return fmt.Errorf("model %q is missing the model name", name)
		}
	}
	return nil
}
