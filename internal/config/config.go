package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the project root.
const FileName = "config.yaml"

// EnvPrefix prefixes environment overrides, e.g. LIBRO_AUTH_SECRET.
const EnvPrefix = "LIBRO"

// Config represents the top-level config.yaml configuration.
type Config struct {
	Entity    EntityConfig    `yaml:"entity" mapstructure:"entity"`
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Currency  string          `yaml:"currency" mapstructure:"currency"`
	Banks     []string        `yaml:"banks" mapstructure:"banks"`
	Bank      string          `yaml:"default_bank" mapstructure:"default_bank"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
	Import    ImportConfig    `yaml:"import" mapstructure:"import"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// EntityConfig identifies the community keeping the books.
type EntityConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
}

// DataConfig locates the state files. Dir is relative to the project root
// unless absolute; the file names are relative to Dir.
type DataConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	Journal  string `yaml:"journal" mapstructure:"journal"`
	Accounts string `yaml:"accounts" mapstructure:"accounts"`
	Rules    string `yaml:"rules" mapstructure:"rules"`
	Balances string `yaml:"balances" mapstructure:"balances"`
}

// AuthConfig holds the password for privileged operations, plain or as a
// bcrypt hash. Prefer LIBRO_AUTH_SECRET or a .env file over the YAML file.
type AuthConfig struct {
	Secret string `yaml:"secret,omitempty" mapstructure:"secret"`
}

// ReportConfig controls report presentation.
type ReportConfig struct {
	Orientation string `yaml:"orientation" mapstructure:"orientation"` // strict or flow
}

// DashboardConfig controls the watch command.
type DashboardConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ImportConfig controls bank CSV import.
type ImportConfig struct {
	Formats        string `yaml:"formats" mapstructure:"formats"` // relative to the project root
	GastoAccount   string `yaml:"gasto_account" mapstructure:"gasto_account"`
	IngresoAccount string `yaml:"ingreso_account" mapstructure:"ingreso_account"`
}

// LogConfig controls diagnostics on stderr.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Default returns a Config with sensible defaults for a new project.
func Default(entityName string) *Config {
	return &Config{
		Entity: EntityConfig{Name: entityName},
		Data: DataConfig{
			Dir:      "data",
			Journal:  "diario.json",
			Accounts: "cuentas.json",
			Rules:    "reglas.json",
			Balances: "saldos.json",
		},
		Currency:  "INR",
		Banks:     []string{"Caja", "Union Bank", "Federal Bank", "SBI", "Otro"},
		Bank:      "Caja",
		Report:    ReportConfig{Orientation: "strict"},
		Dashboard: DashboardConfig{Interval: 5 * time.Second},
		Import: ImportConfig{
			Formats:        "formatos.toml",
			GastoAccount:   "629000",
			IngresoAccount: "750000",
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Path returns the config file path for a project root.
func Path(root string) string {
	return filepath.Join(root, FileName)
}

// Load reads <root>/config.yaml. Values can be overridden by LIBRO_*
// environment variables, which are first read from <root>/.env if present.
func Load(root string) (*Config, error) {
	path := Path(root)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default(""))
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("entity.name", d.Entity.Name)
	v.SetDefault("data.dir", d.Data.Dir)
	v.SetDefault("data.journal", d.Data.Journal)
	v.SetDefault("data.accounts", d.Data.Accounts)
	v.SetDefault("data.rules", d.Data.Rules)
	v.SetDefault("data.balances", d.Data.Balances)
	v.SetDefault("auth.secret", d.Auth.Secret)
	v.SetDefault("currency", d.Currency)
	v.SetDefault("banks", d.Banks)
	v.SetDefault("default_bank", d.Bank)
	v.SetDefault("report.orientation", d.Report.Orientation)
	v.SetDefault("dashboard.interval", d.Dashboard.Interval)
	v.SetDefault("import.formats", d.Import.Formats)
	v.SetDefault("import.gasto_account", d.Import.GastoAccount)
	v.SetDefault("import.ingreso_account", d.Import.IngresoAccount)
	v.SetDefault("log.level", d.Log.Level)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail later.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Report.Orientation) {
	case "", "strict", "estricta", "contable", "flow", "flujo":
	default:
		return fmt.Errorf("config: report.orientation %q must be strict or flow", c.Report.Orientation)
	}
	if c.Dashboard.Interval <= 0 {
		return fmt.Errorf("config: dashboard.interval must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Data.Dir) == "" {
		return fmt.Errorf("config: data.dir is required")
	}
	return nil
}

// SlogLevel parses Log.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

// DataDir resolves the data directory against root.
func (c *Config) DataDir(root string) string {
	if filepath.IsAbs(c.Data.Dir) {
		return c.Data.Dir
	}
	return filepath.Join(root, c.Data.Dir)
}

// JournalPath returns the journal file path.
func (c *Config) JournalPath(root string) string {
	return filepath.Join(c.DataDir(root), c.Data.Journal)
}

// AccountsPath returns the chart of accounts file path.
func (c *Config) AccountsPath(root string) string {
	return filepath.Join(c.DataDir(root), c.Data.Accounts)
}

// RulesPath returns the classification rules file path.
func (c *Config) RulesPath(root string) string {
	return filepath.Join(c.DataDir(root), c.Data.Rules)
}

// BalancesPath returns the monthly balance file path.
func (c *Config) BalancesPath(root string) string {
	return filepath.Join(c.DataDir(root), c.Data.Balances)
}

// FormatsPath returns the import formats file path.
func (c *Config) FormatsPath(root string) string {
	if filepath.IsAbs(c.Import.Formats) {
		return c.Import.Formats
	}
	return filepath.Join(root, c.Import.Formats)
}
