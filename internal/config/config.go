// Package config resolves run settings from a .env file, an optional config
// file and RASPADOR_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "RASPADOR_"

type Browser struct {
	ControlURL string `yaml:"control_url" toml:"control_url"`
	Bin        string `yaml:"bin" toml:"bin"`
	Headless   bool   `yaml:"headless" toml:"headless"`
}

type Config struct {
	// Interactive is the -i level: 1 prompts, 2 also starts stepping, 3
	// also disables the prompt timeout.
	Interactive   int           `yaml:"interactive" toml:"interactive"`
	Retry         int           `yaml:"retry" toml:"retry"`
	BreakOnErrors bool          `yaml:"break_on_errors" toml:"break_on_errors"`
	Monitor       bool          `yaml:"monitor" toml:"monitor"`
	PromptTimeout time.Duration `yaml:"prompt_timeout" toml:"prompt_timeout"`
	Timeout       time.Duration `yaml:"timeout" toml:"timeout"`
	DetailLength  int           `yaml:"detail_length" toml:"detail_length"`
	OutputDir     string        `yaml:"output_dir" toml:"output_dir"`
	LogDB         string        `yaml:"log_db" toml:"log_db"`
	LogFile       string        `yaml:"log_file" toml:"log_file"`
	Trace         string        `yaml:"trace" toml:"trace"`
	ScriptDir     string        `yaml:"script_dir" toml:"script_dir"`
	Viewer        string        `yaml:"viewer" toml:"viewer"`
	OpenPages     bool          `yaml:"open_pages" toml:"open_pages"`
	Browser       Browser       `yaml:"browser" toml:"browser"`
}

func Default() Config {
	return Config{
		Retry:         3,
		PromptTimeout: 30 * time.Second,
		DetailLength:  2048,
		OutputDir:     "output",
		ScriptDir:     "scripts",
		LogFile:       "raspador.log",
		Browser:       Browser{Headless: true},
	}
}

// Load reads .env if present, then path (when set), then the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config load failed (.env): %w", err)
	}
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, Validate(cfg)
}

func loadFile(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	case ".toml":
		err = toml.Unmarshal(data, out)
	default:
		return fmt.Errorf("config load failed (%s): unsupported extension", path)
	}
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	ints := map[string]*int{
		"INTERACTIVE":   &cfg.Interactive,
		"RETRY":         &cfg.Retry,
		"DETAIL_LENGTH": &cfg.DetailLength,
	}
	for key, dst := range ints {
		if v, ok := lookup(envPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = n
		}
	}
	bools := map[string]*bool{
		"BREAK_ON_ERRORS":  &cfg.BreakOnErrors,
		"MONITOR":          &cfg.Monitor,
		"OPEN_PAGES":       &cfg.OpenPages,
		"BROWSER_HEADLESS": &cfg.Browser.Headless,
	}
	for key, dst := range bools {
		if v, ok := lookup(envPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = b
		}
	}
	durations := map[string]*time.Duration{
		"PROMPT_TIMEOUT": &cfg.PromptTimeout,
		"TIMEOUT":        &cfg.Timeout,
	}
	for key, dst := range durations {
		if v, ok := lookup(envPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = d
		}
	}
	strs := map[string]*string{
		"OUTPUT_DIR":          &cfg.OutputDir,
		"LOG_DB":              &cfg.LogDB,
		"LOG_FILE":            &cfg.LogFile,
		"TRACE":               &cfg.Trace,
		"SCRIPT_DIR":          &cfg.ScriptDir,
		"VIEWER":              &cfg.Viewer,
		"BROWSER_CONTROL_URL": &cfg.Browser.ControlURL,
		"BROWSER_BIN":         &cfg.Browser.Bin,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	return nil
}

func Validate(cfg Config) error {
	if cfg.Interactive < 0 {
		return fmt.Errorf("interactive level must not be negative")
	}
	if cfg.DetailLength < 0 {
		return fmt.Errorf("detail length must not be negative")
	}
	if cfg.Timeout < 0 || cfg.PromptTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return fmt.Errorf("config missing output_dir")
	}
	return nil
}
