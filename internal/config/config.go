package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Export    ExportConfig    `yaml:"export"`
	Log       LogConfig       `yaml:"log"`
}

type StorageConfig struct {
	Dir          string `yaml:"dir"`
	UsersFile    string `yaml:"users_file"`
	WorkoutsFile string `yaml:"workouts_file"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// ExportConfig selects where kcalplanner-export writes its snapshot.
type ExportConfig struct {
	Driver     string         `yaml:"driver"` // "sqlite" or "postgres"
	SQLitePath string         `yaml:"sqlite_path"`
	Database   DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// File, when set, receives logs through a rotating writer instead of
	// the console.
	File string `yaml:"file"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// SlogLevel maps Level to a slog level; unknown values mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default is a working local setup: data files in ./data, HTTP on
// localhost:8080, exports to ./data/kcalplanner.db.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir:          "data",
			UsersFile:    "users.csv",
			WorkoutsFile: "workouts.csv",
		},
		Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
		Tailscale: TailscaleConfig{
			Hostname: "kcalplanner",
			StateDir: "tsnet-state",
		},
		Export: ExportConfig{
			Driver:     "sqlite",
			SQLitePath: "data/kcalplanner.db",
			Database:   DatabaseConfig{Host: "localhost", Port: 5432, Name: "kcalplanner", User: "kcalplanner"},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load starts from Default, overlays the YAML file at path (skipped when
// path is empty), loads a .env file from the working directory if there is
// one, then applies environment variable overrides. Env vars use the prefix
// KCALPLANNER_:
//
//	KCALPLANNER_DATA_DIR, KCALPLANNER_USERS_FILE, KCALPLANNER_WORKOUTS_FILE,
//	KCALPLANNER_SERVER_HOST, KCALPLANNER_SERVER_PORT,
//	KCALPLANNER_TS_ENABLED, KCALPLANNER_TS_HOSTNAME, KCALPLANNER_TS_STATE_DIR,
//	KCALPLANNER_EXPORT_DRIVER, KCALPLANNER_EXPORT_SQLITE_PATH,
//	KCALPLANNER_DB_HOST, KCALPLANNER_DB_PORT, KCALPLANNER_DB_NAME,
//	KCALPLANNER_DB_USER, KCALPLANNER_DB_PASSWORD, KCALPLANNER_DB_SSLMODE,
//	KCALPLANNER_LOG_LEVEL, KCALPLANNER_LOG_FILE
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Storage.Dir, "KCALPLANNER_DATA_DIR")
	setString(&cfg.Storage.UsersFile, "KCALPLANNER_USERS_FILE")
	setString(&cfg.Storage.WorkoutsFile, "KCALPLANNER_WORKOUTS_FILE")

	setString(&cfg.Server.Host, "KCALPLANNER_SERVER_HOST")
	setInt(&cfg.Server.Port, "KCALPLANNER_SERVER_PORT")

	if v := os.Getenv("KCALPLANNER_TS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	setString(&cfg.Tailscale.Hostname, "KCALPLANNER_TS_HOSTNAME")
	setString(&cfg.Tailscale.StateDir, "KCALPLANNER_TS_STATE_DIR")

	setString(&cfg.Export.Driver, "KCALPLANNER_EXPORT_DRIVER")
	setString(&cfg.Export.SQLitePath, "KCALPLANNER_EXPORT_SQLITE_PATH")
	setString(&cfg.Export.Database.Host, "KCALPLANNER_DB_HOST")
	setInt(&cfg.Export.Database.Port, "KCALPLANNER_DB_PORT")
	setString(&cfg.Export.Database.Name, "KCALPLANNER_DB_NAME")
	setString(&cfg.Export.Database.User, "KCALPLANNER_DB_USER")
	setString(&cfg.Export.Database.Password, "KCALPLANNER_DB_PASSWORD")
	setString(&cfg.Export.Database.SSLMode, "KCALPLANNER_DB_SSLMODE")

	setString(&cfg.Log.Level, "KCALPLANNER_LOG_LEVEL")
	setString(&cfg.Log.File, "KCALPLANNER_LOG_FILE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (c *Config) validate() error {
	if c.Storage.UsersFile == "" {
		return fmt.Errorf("storage.users_file is required")
	}
	if c.Storage.WorkoutsFile == "" {
		return fmt.Errorf("storage.workouts_file is required")
	}
	if c.Storage.UsersFile == c.Storage.WorkoutsFile {
		return fmt.Errorf("storage.users_file and storage.workouts_file must differ")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}

// Validate checks the export section. Only kcalplanner-export needs it, so
// Load leaves it alone and a bad export section never blocks the other
// binaries.
func (e ExportConfig) Validate() error {
	switch e.Driver {
	case "sqlite":
		if e.SQLitePath == "" {
			return fmt.Errorf("export.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if e.Database.Host == "" {
			return fmt.Errorf("export.database.host is required for the postgres driver")
		}
		if e.Database.Name == "" {
			return fmt.Errorf("export.database.name is required for the postgres driver")
		}
	default:
		return fmt.Errorf("export.driver must be sqlite or postgres, got %q", e.Driver)
	}
	return nil
}
