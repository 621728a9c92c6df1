package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sources a resolved value can come from.
const (
	SourceCLI     = "cli"
	SourceEnv     = "env"
	SourceFile    = "file"
	SourceDefault = "default"
)

// Defaults.
const (
	DefaultProvider      = "groq"
	DefaultTimeout       = 2 * time.Minute
	DefaultMaxIterations = 8
	DefaultTheme         = "default"
	DefaultAddr          = ":8501"
	FileName             = ".recommender.yaml"
)

// ErrInvalidConfig is wrapped by validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// apiKeyEnv maps providers to the variable holding their key.
var apiKeyEnv = map[string]string{
	"groq":       "GROQ_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"gemini":     "GEMINI_API_KEY",
}

// Search configures the web-search backends.
type Search struct {
	SerperAPIKey string `yaml:"serper_api_key,omitempty"`
	TavilyAPIKey string `yaml:"tavily_api_key,omitempty"`
	// DuckDuckGo enables the keyless backend. Unset means "only when no
	// keyed backend is configured".
	DuckDuckGo *bool `yaml:"duckduckgo,omitempty"`
}

// Config is the resolved application configuration.
type Config struct {
	Provider      string        `yaml:"provider"`
	Model         string        `yaml:"model,omitempty"`
	APIKey        string        `yaml:"api_key,omitempty"`
	BaseURL       string        `yaml:"base_url,omitempty"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxIterations int           `yaml:"max_iterations"`
	Temperature   float64       `yaml:"temperature"`
	Theme         string        `yaml:"theme"`
	NoColor       bool          `yaml:"no_color"`
	Debug         bool          `yaml:"debug"`
	LogFile       string        `yaml:"log_file,omitempty"`
	HistoryPath   string        `yaml:"history_path,omitempty"`
	NoHistory     bool          `yaml:"no_history"`
	Addr          string        `yaml:"addr"`
	Search        Search        `yaml:"search"`

	// Path is the config file that was loaded, if any.
	Path string `yaml:"-"`
	// Sources records where each key's final value came from.
	Sources map[string]string `yaml:"-"`
}

// Flags carries CLI overrides. A nil field was not set on the command line.
type Flags struct {
	ConfigFile    string
	Provider      *string
	Model         *string
	Theme         *string
	Addr          *string
	HistoryPath   *string
	LogFile       *string
	NoColor       *bool
	Debug         *bool
	NoHistory     *bool
	MaxIterations *int
	Timeout       *time.Duration
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	c := &Config{
		Provider:      DefaultProvider,
		Timeout:       DefaultTimeout,
		MaxIterations: DefaultMaxIterations,
		Theme:         DefaultTheme,
		Addr:          DefaultAddr,
		Sources:       map[string]string{},
	}
	for _, k := range []string{"provider", "timeout", "max_iterations", "theme", "addr", "no_color", "debug"} {
		c.Sources[k] = SourceDefault
	}
	return c
}

// Load resolves the configuration from file, environment (via getenv) and flags.
func Load(getenv func(string) string, flags Flags) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Defaults()

	path := flags.ConfigFile
	if path == "" {
		path = getenv("RECOMMENDER_CONFIG")
	}
	if path == "" {
		path = findConfigPath()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv(getenv)
	cfg.applyFlags(flags)

	if name := apiKeyEnv[cfg.Provider]; name != "" {
		if v := getenv(name); v != "" {
			cfg.APIKey = v
			cfg.Sources["api_key"] = SourceEnv
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigPath checks the working directory first, then the user config dir.
func findConfigPath() string {
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	configHome, err := os.UserConfigDir()
	if err != nil || configHome == "" || configHome == "/" {
		return ""
	}
	xdgPath := filepath.Join(configHome, "recommender", FileName)
	if _, err := os.Stat(xdgPath); err == nil {
		return xdgPath
	}
	return ""
}

// mergeFile overlays keys present in the YAML file at path.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	c.Path = path
	if node.Kind == 0 {
		return nil
	}
	if err := node.Decode(c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if len(node.Content) > 0 {
		root := node.Content[0]
		for i := 0; i+1 < len(root.Content); i += 2 {
			c.Sources[root.Content[i].Value] = SourceFile
		}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	setString := func(key, env string, dst *string) {
		if v := strings.TrimSpace(getenv(env)); v != "" {
			*dst = v
			c.Sources[key] = SourceEnv
		}
	}
	setString("provider", "RECOMMENDER_PROVIDER", &c.Provider)
	setString("model", "RECOMMENDER_MODEL", &c.Model)
	setString("theme", "RECOMMENDER_THEME", &c.Theme)
	setString("addr", "RECOMMENDER_ADDR", &c.Addr)
	setString("history_path", "RECOMMENDER_HISTORY", &c.HistoryPath)
	setString("search.serper_api_key", "SERPER_API_KEY", &c.Search.SerperAPIKey)
	setString("search.tavily_api_key", "TAVILY_API_KEY", &c.Search.TavilyAPIKey)

	if b, ok := envBool(getenv("RECOMMENDER_DEBUG")); ok {
		c.Debug = b
		c.Sources["debug"] = SourceEnv
	}
	if getenv("NO_COLOR") != "" {
		c.NoColor = true
		c.Sources["no_color"] = SourceEnv
	}
	c.Provider = strings.ToLower(c.Provider)
}

func (c *Config) applyFlags(f Flags) {
	if f.Provider != nil {
		c.Provider = strings.ToLower(*f.Provider)
		c.Sources["provider"] = SourceCLI
	}
	setString := func(key string, src *string, dst *string) {
		if src != nil {
			*dst = *src
			c.Sources[key] = SourceCLI
		}
	}
	setString("model", f.Model, &c.Model)
	setString("theme", f.Theme, &c.Theme)
	setString("addr", f.Addr, &c.Addr)
	setString("history_path", f.HistoryPath, &c.HistoryPath)
	setString("log_file", f.LogFile, &c.LogFile)

	setBool := func(key string, src *bool, dst *bool) {
		if src != nil {
			*dst = *src
			c.Sources[key] = SourceCLI
		}
	}
	setBool("no_color", f.NoColor, &c.NoColor)
	setBool("debug", f.Debug, &c.Debug)
	setBool("no_history", f.NoHistory, &c.NoHistory)

	if f.MaxIterations != nil {
		c.MaxIterations = *f.MaxIterations
		c.Sources["max_iterations"] = SourceCLI
	}
	if f.Timeout != nil {
		c.Timeout = *f.Timeout
		c.Sources["timeout"] = SourceCLI
	}
}

// envBool accepts strconv.ParseBool spellings; anything else is ignored.
func envBool(v string) (bool, bool) {
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Validate checks the resolved values.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := apiKeyEnv[c.Provider]; !ok {
		errs = append(errs, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider))
	}
	if c.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("%w: max_iterations must be at least 1, got %d", ErrInvalidConfig, c.MaxIterations))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("%w: temperature %.2f out of range [0, 2]", ErrInvalidConfig, c.Temperature))
	}
	return errors.Join(errs...)
}

// APIKeyEnv names the environment variable read for the provider's key.
func (c *Config) APIKeyEnv() string { return apiKeyEnv[c.Provider] }

// UseDuckDuckGo reports whether the keyless search backend should be used.
func (c *Config) UseDuckDuckGo() bool {
	if c.Search.DuckDuckGo != nil {
		return *c.Search.DuckDuckGo
	}
	return c.Search.SerperAPIKey == "" && c.Search.TavilyAPIKey == ""
}

// Dir is the per-user directory for history and logs.
func Dir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(configHome, "recommender"), nil
}
