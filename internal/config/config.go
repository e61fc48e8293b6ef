// Package config loads venom settings from defaults, an optional TOML file
// and VENOM_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. VENOM_API_BASE.
const EnvPrefix = "VENOM"

// Config holds application configuration.
type Config struct {
	// APIBase is forwarded unchanged to every panel. Empty means the
	// backend is served by this process.
	APIBase  string `mapstructure:"api_base"`
	Server   ServerConfig
	Database DatabaseConfig
	Skills   SkillsConfig
	Sandbox  SandboxConfig
	Client   ClientConfig
	Log      LogConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// SkillsConfig holds skill file locations.
type SkillsConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
	Dir       string
}

// SandboxConfig controls how uploaded code is tested.
type SandboxConfig struct {
	Python  string
	Timeout time.Duration
}

// ClientConfig controls the TUI's HTTP client.
type ClientConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LogConfig controls zap output.
type LogConfig struct {
	Level string
	File  string
}

// Origin returns the http origin of the configured server address.
func (c Config) Origin() string {
	return "http://" + c.Server.Addr
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_base", "")
	v.SetDefault("server.addr", "127.0.0.1:8000")
	v.SetDefault("database.path", "venom_data.sqlite")
	v.SetDefault("skills.upload_dir", "uploads")
	v.SetDefault("skills.dir", "skills")
	v.SetDefault("sandbox.python", "python3")
	v.SetDefault("sandbox.timeout", 8*time.Second)
	v.SetDefault("client.timeout", 10*time.Second)
	v.SetDefault("client.cache_ttl", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// DefaultPath returns ~/.config/venom/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "venom", "config.toml"), nil
}

// Load reads configuration. path overrides VENOM_CONFIG; when both are
// empty the default location is tried and a missing file is not an error.
// An explicitly named file must exist.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil || explicit {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Defaults returns the built-in configuration, ignoring files and environment.
func Defaults() (Config, error) {
	v := viper.New()
	setDefaults(v)
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal defaults: %w", err)
	}
	return c, nil
}

// Save writes cfg as TOML to path, creating the directory if needed.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api_base", cfg.APIBase)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("database.path", cfg.Database.Path)
	v.Set("skills.upload_dir", cfg.Skills.UploadDir)
	v.Set("skills.dir", cfg.Skills.Dir)
	v.Set("sandbox.python", cfg.Sandbox.Python)
	v.Set("sandbox.timeout", cfg.Sandbox.Timeout.String())
	v.Set("client.timeout", cfg.Client.Timeout.String())
	v.Set("client.cache_ttl", cfg.Client.CacheTTL.String())
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
