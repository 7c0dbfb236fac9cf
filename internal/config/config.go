// Package config loads devlaunch settings from flags, environment, an
// optional .env file and an optional ~/.devlaunch.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = ".devlaunch"
	envPrefix  = "DEVLAUNCH"
)

// Config holds the resolved settings.
type Config struct {
	// Listen is the address the daemon binds to.
	Listen string `mapstructure:"listen" validate:"required,hostname_port"`
	// API is the daemon URL used by the CLI and TUI.
	API    string       `mapstructure:"api" validate:"required,url"`
	DBPath string       `mapstructure:"db" validate:"required"`
	Output OutputConfig `mapstructure:"output"`
	LLM    LLMConfig    `mapstructure:"llm"`
	Log    LogConfig    `mapstructure:"log"`
}

// OutputConfig controls where generated scripts go.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Filename string `mapstructure:"filename" validate:"required"`
	Strict   bool   `mapstructure:"strict"`
}

// LLMConfig configures the extraction service.
type LLMConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model" validate:"required"`
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal"`
	File  string `mapstructure:"file"`
}

var validate = validator.New()

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Listen: "127.0.0.1:7466",
		API:    "http://127.0.0.1:7466",
		DBPath: filepath.Join(homeDir(), ".devlaunch", "devlaunch.db"),
		Output: OutputConfig{
			Filename: "launch-dev-env.bat",
		},
		LLM: LLMConfig{
			Model:   "gemini-2.5-flash",
			Timeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers DefaultConfig on v so env vars and files can
// override individual keys.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("listen", d.Listen)
	v.SetDefault("api", d.API)
	v.SetDefault("db", d.DBPath)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.filename", d.Output.Filename)
	v.SetDefault("output.strict", d.Output.Strict)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", "")
}

// Load reads configuration into a Config. cfgFile names an explicit config
// file; when empty ~/.devlaunch.yaml and ./.devlaunch.yaml are tried and may
// be absent.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(homeDir())
		v.AddConfigPath(".")
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = firstEnv("GEMINI_API_KEY", "API_KEY")
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
