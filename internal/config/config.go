package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gyeh/myelin/internal/claim"
	"github.com/gyeh/myelin/internal/icd"
	"github.com/gyeh/myelin/internal/ingest"
	"github.com/gyeh/myelin/internal/model"
)

// Calendar kinds.
const (
	CalendarFiscalYear = "fiscal-year"
	CalendarMSDRG      = "ms-drg"
)

// Config holds all runtime configuration for a myelin run.
type Config struct {
	DSN         string
	LogFormat   string // "text" or "json"
	LogLevel    string
	ConfigPath  string
	Force       bool
	KeepStaging bool
	DryRun      bool

	Engines     map[claim.Module]EngineConfig
	Sources     []ingest.Task
	Build       BuildConfig
	Calendar    CalendarConfig
	ICD         icd.Policy
	ObjectStore ingest.ObjectStore
	Server      ServerConfig
}

// EngineConfig locates one external engine.
type EngineConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// BuildConfig tunes reference builds.
type BuildConfig struct {
	Concurrency int    `yaml:"concurrency"`
	MaxAttempts int    `yaml:"max_attempts"`
	TempDir     string `yaml:"temp_dir"`
}

// CalendarConfig selects the code version calendar.
type CalendarConfig struct {
	Kind    string `yaml:"kind"`
	FirstFY int    `yaml:"first_fy"`
	LastFY  int    `yaml:"last_fy"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	Engines     map[string]EngineConfig `yaml:"engines"`
	Sources     []ingest.Task           `yaml:"sources"`
	Build       BuildConfig             `yaml:"build"`
	Calendar    CalendarConfig          `yaml:"calendar"`
	ICD         icd.Policy              `yaml:"icd"`
	ObjectStore ingest.ObjectStore      `yaml:"object_store"`
	Server      ServerConfig            `yaml:"server"`
}

// Defaults returns a config with every optional setting filled in.
func Defaults() Config {
	return Config{
		LogFormat: "text",
		LogLevel:  "info",
		Build:     BuildConfig{Concurrency: 4, MaxAttempts: 3},
		Calendar:  CalendarConfig{Kind: CalendarFiscalYear, FirstFY: 2016, LastFY: 2027},
		ICD:       icd.Policy{TieBreak: icd.TieBreakLexical, Unlisted: icd.UnlistedUnconvertible},
		Server:    ServerConfig{Addr: ":8080"},
	}
}

// LoadFromFile reads a YAML config file and merges its values into Config.
// Sections absent from the file keep their current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if len(yc.Engines) > 0 {
		c.Engines = make(map[claim.Module]EngineConfig, len(yc.Engines))
		for name, e := range yc.Engines {
			m, err := claim.ParseModule(name)
			if err != nil {
				return fmt.Errorf("engines: %w", err)
			}
			c.Engines[m] = e
		}
	}
	if len(yc.Sources) > 0 {
		c.Sources = yc.Sources
	}
	if yc.Build.Concurrency != 0 {
		c.Build.Concurrency = yc.Build.Concurrency
	}
	if yc.Build.MaxAttempts != 0 {
		c.Build.MaxAttempts = yc.Build.MaxAttempts
	}
	if yc.Build.TempDir != "" {
		c.Build.TempDir = yc.Build.TempDir
	}
	if yc.Calendar.Kind != "" {
		c.Calendar.Kind = yc.Calendar.Kind
	}
	if yc.Calendar.FirstFY != 0 {
		c.Calendar.FirstFY = yc.Calendar.FirstFY
	}
	if yc.Calendar.LastFY != 0 {
		c.Calendar.LastFY = yc.Calendar.LastFY
	}
	if yc.ICD.TieBreak != "" {
		c.ICD.TieBreak = yc.ICD.TieBreak
	}
	if yc.ICD.Unlisted != "" {
		c.ICD.Unlisted = yc.ICD.Unlisted
	}
	if yc.ObjectStore != (ingest.ObjectStore{}) {
		c.ObjectStore = yc.ObjectStore
	}
	if yc.Server.Addr != "" {
		c.Server.Addr = yc.Server.Addr
	}
	return c.Validate()
}

// envKeys are the settings the environment may override, as viper keys.
// MYELIN_OBJECT_STORE_SECRET_KEY sets object_store.secret_key.
var envKeys = []string{
	"dsn",
	"log_format",
	"log_level",
	"object_store.endpoint",
	"object_store.access_key",
	"object_store.secret_key",
	"server.addr",
}

// ApplyEnv overlays MYELIN_* environment variables. Flags given explicitly
// on the command line are applied after this and win.
func (c *Config) ApplyEnv() {
	v := viper.New()
	v.SetEnvPrefix("MYELIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	set := func(key string, dst *string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
	set("dsn", &c.DSN)
	set("log_format", &c.LogFormat)
	set("log_level", &c.LogLevel)
	set("object_store.endpoint", &c.ObjectStore.Endpoint)
	set("object_store.access_key", &c.ObjectStore.AccessKey)
	set("object_store.secret_key", &c.ObjectStore.SecretKey)
	set("server.addr", &c.Server.Addr)
}

// Validate checks every section and reports the first invalid field.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log format %q: want text or json", c.LogFormat)
	}
	for m, e := range c.Engines {
		if e.URL == "" {
			return fmt.Errorf("engines.%s: url is required", m)
		}
		if e.Timeout < 0 {
			return fmt.Errorf("engines.%s: negative timeout", m)
		}
	}
	for i, s := range c.Sources {
		if _, err := model.ParseRefKind(string(s.Kind)); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
		if s.Source == "" {
			return fmt.Errorf("sources[%d]: source is required", i)
		}
	}
	if c.Build.Concurrency < 0 || c.Build.MaxAttempts < 0 {
		return fmt.Errorf("build: concurrency and max_attempts must not be negative")
	}
	switch c.Calendar.Kind {
	case CalendarFiscalYear, CalendarMSDRG:
	default:
		return fmt.Errorf("calendar.kind %q: want %s or %s", c.Calendar.Kind, CalendarFiscalYear, CalendarMSDRG)
	}
	if c.Calendar.FirstFY <= 0 || c.Calendar.LastFY < c.Calendar.FirstFY {
		return fmt.Errorf("calendar: invalid fiscal year range %d..%d", c.Calendar.FirstFY, c.Calendar.LastFY)
	}
	if err := c.ICD.Validate(); err != nil {
		return fmt.Errorf("icd: %w", err)
	}
	return nil
}

// ValidateWithDSN also requires a database connection string.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or MYELIN_DSN is required")
	}
	return nil
}

// CodeCalendar builds the configured code version calendar.
func (c *Config) CodeCalendar() (*icd.Calendar, error) {
	if c.Calendar.Kind == CalendarMSDRG {
		return icd.MSDRGCalendar(c.Calendar.FirstFY, c.Calendar.LastFY)
	}
	return icd.FiscalYearCalendar(c.Calendar.FirstFY, c.Calendar.LastFY)
}
