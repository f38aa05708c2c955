// Package config loads flashmind settings from defaults, an optional YAML
// file, FLASHMIND_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/flashmind/internal/sm2"
)

const (
	EnvPrefix         = "FLASHMIND_"
	DefaultConfigFile = "flashmind.yaml"
	ConfigFlag        = "config"
)

type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Server    ServerConfig    `koanf:"server"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Sync      SyncConfig      `koanf:"sync"`
	Log       LogConfig       `koanf:"log"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type ServerConfig struct {
	Addr           string `koanf:"addr" validate:"required,hostname_port"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes" validate:"gt=0"`
}

type SchedulerConfig struct {
	PassingGrade      int     `koanf:"passing_grade" validate:"min=1,max=5"`
	MinEaseFactor     float64 `koanf:"min_ease_factor" validate:"gte=1.3"`
	InitialEaseFactor float64 `koanf:"initial_ease_factor" validate:"gtefield=MinEaseFactor"`
}

type SyncConfig struct {
	ReposDir    string `koanf:"repos_dir" validate:"required"`
	GitAttempts uint   `koanf:"git_attempts" validate:"min=1,max=10"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json auto"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "flashmind.db"},
		Server: ServerConfig{
			Addr:           "localhost:8080",
			MaxUploadBytes: 10 << 20,
		},
		Scheduler: SchedulerConfig{
			PassingGrade:      sm2.DefaultPassingGrade,
			MinEaseFactor:     sm2.DefaultMinEaseFactor,
			InitialEaseFactor: sm2.DefaultInitialEaseFactor,
		},
		Sync: SyncConfig{
			ReposDir:    "repos",
			GitAttempts: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"db":         "database.path",
	"addr":       "server.addr",
	"repos-dir":  "sync.repos_dir",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(ConfigFlag, "", "Path to a YAML config file (default ./"+DefaultConfigFile+" when present)")
	fs.String("db", d.Database.Path, "Path to the SQLite database file")
	fs.String("addr", d.Server.Addr, "Address the HTTP server listens on")
	fs.String("repos-dir", d.Sync.ReposDir, "Directory git sources are cloned into")
	fs.String("log-level", d.Log.Level, "Log level: debug, info, warn or error")
	fs.String("log-format", d.Log.Format, "Log format: text, json or auto")
}

// Load builds the configuration from a parsed flag set. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, explicit := configPath(fs)
	if path != "" {
		if _, err := os.Stat(path); err == nil || explicit {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configPath(fs *pflag.FlagSet) (string, bool) {
	if fs != nil {
		if p, err := fs.GetString(ConfigFlag); err == nil && p != "" {
			return p, true
		}
	}
	return DefaultConfigFile, false
}

// envKey turns FLASHMIND_SERVER__MAX_UPLOAD_BYTES into server.max_upload_bytes.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks every field and reports all failures at once.
func (c *Config) Validate() error {
	validate, trans, err := newValidator()
	if err != nil {
		return err
	}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validatorErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate configuration: %w", err)
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fieldPath(fe.Namespace()), fe.Translate(trans)))
		}
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}
	return nil
}

// SchedulerParams returns the SM-2 parameters described by the configuration.
func (c *Config) SchedulerParams() *sm2.Params {
	return &sm2.Params{
		PassingGrade:      c.Scheduler.PassingGrade,
		MinEaseFactor:     c.Scheduler.MinEaseFactor,
		InitialEaseFactor: c.Scheduler.InitialEaseFactor,
	}
}
