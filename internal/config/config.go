package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BHTSCAN_OCR_API_KEY.
const EnvPrefix = "BHTSCAN"

// Config is the resolved configuration.
type Config struct {
	OCR     OCRConfig     `mapstructure:"ocr"`
	History HistoryConfig `mapstructure:"history"`
	Detect  DetectConfig  `mapstructure:"detect"`
	Serve   ServeConfig   `mapstructure:"serve"`
	Log     LogConfig     `mapstructure:"log"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type OCRConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Retries  uint          `mapstructure:"retries"`
}

type HistoryConfig struct {
	Path     string `mapstructure:"path"`
	AutoSave bool   `mapstructure:"auto_save"`
}

type DetectConfig struct {
	Extended bool `mapstructure:"extended"`
	Section  bool `mapstructure:"section"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		OCR: OCRConfig{
			Endpoint: "https://vision.googleapis.com/v1/images:annotate",
			Timeout:  30 * time.Second,
			Retries:  3,
		},
		History: HistoryConfig{Path: defaultHistoryPath()},
		Serve:   ServeConfig{Addr: "127.0.0.1:8080"},
		Log:     LogConfig{Level: "warn"},
	}
}

// Load layers defaults, the config file and environment variables.
// An explicit cfgFile must exist; otherwise ./bhtscan.yaml and
// $HOME/.bhtscan/config.yaml are tried in order.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("ocr.api_key", d.OCR.APIKey)
	v.SetDefault("ocr.endpoint", d.OCR.Endpoint)
	v.SetDefault("ocr.timeout", d.OCR.Timeout)
	v.SetDefault("ocr.retries", d.OCR.Retries)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("history.auto_save", d.History.AutoSave)
	v.SetDefault("detect.extended", d.Detect.Extended)
	v.SetDefault("detect.section", d.Detect.Section)
	v.SetDefault("serve.addr", d.Serve.Addr)
	v.SetDefault("log.level", d.Log.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The Vision key is commonly exported under its own name.
	if err := v.BindEnv("ocr.api_key", EnvPrefix+"_OCR_API_KEY", "GOOGLE_VISION_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	file := cfgFile
	if file == "" {
		file = findConfigFile()
	} else if _, err := os.Stat(file); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.OCR.APIKey = ResolveEnvVars(cfg.OCR.APIKey)
	cfg.History.Path = expandHome(cfg.History.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no command can run with.
func (c *Config) Validate() error {
	if c.OCR.Timeout <= 0 {
		return fmt.Errorf("ocr.timeout must be positive, got %s", c.OCR.Timeout)
	}
	if c.OCR.Retries == 0 {
		return errors.New("ocr.retries must be at least 1")
	}
	if strings.TrimSpace(c.History.Path) == "" {
		return errors.New("history.path must not be empty")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name onto slog.
func ParseLevel(raw string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return 0, fmt.Errorf("log.level %q: want debug, info, warn, or error", raw)
	}
	return lvl, nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func findConfigFile() string {
	candidates := []string{"bhtscan.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".bhtscan", "config.yaml"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".bhtscan", "history.db")
	}
	return filepath.Join(home, ".bhtscan", "history.db")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
