package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"gitnet/internal/paths"
)

// Config represents the complete gitnet configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Git     GitConfig     `json:"git" mapstructure:"git"`
	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Diff    DiffConfig    `json:"diff" mapstructure:"diff"`
	Layout  LayoutConfig  `json:"layout" mapstructure:"layout"`
	Watcher WatcherConfig `json:"watcher" mapstructure:"watcher"`
	Server  ServerConfig  `json:"server" mapstructure:"server"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Log     LogConfig     `json:"log" mapstructure:"log"`

	// AuthorsFile is an optional TOML file mapping emails to GitHub usernames.
	AuthorsFile string `json:"authorsFile,omitempty" mapstructure:"authorsFile"`
}

// GitConfig contains git subprocess configuration
type GitConfig struct {
	Binary         string `json:"binary" mapstructure:"binary"`
	MaxOutputBytes int64  `json:"maxOutputBytes" mapstructure:"maxOutputBytes"`
	TimeoutMs      int    `json:"timeoutMs" mapstructure:"timeoutMs"` // 0 disables the timeout
	AuditCapacity  int    `json:"auditCapacity" mapstructure:"auditCapacity"`
}

// CacheConfig contains cache sizes and lifetimes
type CacheConfig struct {
	BranchTtlSeconds int `json:"branchTtlSeconds" mapstructure:"branchTtlSeconds"`
	BranchMaxEntries int `json:"branchMaxEntries" mapstructure:"branchMaxEntries"`
	TagTtlSeconds    int `json:"tagTtlSeconds" mapstructure:"tagTtlSeconds"`
	TagMaxEntries    int `json:"tagMaxEntries" mapstructure:"tagMaxEntries"`
	AvatarMaxEntries int `json:"avatarMaxEntries" mapstructure:"avatarMaxEntries"`
}

// DiffConfig contains diff preview limits
type DiffConfig struct {
	MaxPreviewLines int `json:"maxPreviewLines" mapstructure:"maxPreviewLines"`
}

// LayoutConfig contains graph geometry
type LayoutConfig struct {
	LaneWidth    float64 `json:"laneWidth" mapstructure:"laneWidth"`
	RowHeight    float64 `json:"rowHeight" mapstructure:"rowHeight"`
	NodeSize     float64 `json:"nodeSize" mapstructure:"nodeSize"`
	HeadNodeSize float64 `json:"headNodeSize" mapstructure:"headNodeSize"`
}

// WatcherConfig contains change watcher configuration
type WatcherConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	DebounceMs int  `json:"debounceMs" mapstructure:"debounceMs"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
	// TokenHash is a bcrypt hash of the bearer token. Empty disables auth.
	TokenHash string `json:"tokenHash,omitempty" mapstructure:"tokenHash"`
}

// StorageConfig contains snapshot storage configuration
type StorageConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `json:"maxSizeMb" mapstructure:"maxSizeMb"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// LogConfig contains commit log defaults
type LogConfig struct {
	DefaultLimit int `json:"defaultLimit" mapstructure:"defaultLimit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Git: GitConfig{
			Binary:         "git",
			MaxOutputBytes: 10 * 1024 * 1024,
			TimeoutMs:      0,
			AuditCapacity:  100,
		},
		Cache: CacheConfig{
			BranchTtlSeconds: 30,
			BranchMaxEntries: 10,
			TagTtlSeconds:    60,
			TagMaxEntries:    10,
			AvatarMaxEntries: 500,
		},
		Diff: DiffConfig{
			MaxPreviewLines: 5000,
		},
		Layout: LayoutConfig{
			LaneWidth:    30,
			RowHeight:    40,
			NodeSize:     10,
			HeadNodeSize: 14,
		},
		Watcher: WatcherConfig{
			Enabled:    true,
			DebounceMs: 100,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 9130,
		},
		Storage: StorageConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Log: LogConfig{
			DefaultLimit: 500,
		},
	}
}

// LoadConfig loads configuration from .gitnet/config.json under repoRoot.
// GITNET_* environment variables override file values (GITNET_GIT_BINARY,
// GITNET_SERVER_PORT, ...).
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(paths.StateDir(repoRoot))

	v.SetEnvPrefix("GITNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every key so that environment overrides apply
// even when no config file exists.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("authorsFile", d.AuthorsFile)

	v.SetDefault("git.binary", d.Git.Binary)
	v.SetDefault("git.maxOutputBytes", d.Git.MaxOutputBytes)
	v.SetDefault("git.timeoutMs", d.Git.TimeoutMs)
	v.SetDefault("git.auditCapacity", d.Git.AuditCapacity)

	v.SetDefault("cache.branchTtlSeconds", d.Cache.BranchTtlSeconds)
	v.SetDefault("cache.branchMaxEntries", d.Cache.BranchMaxEntries)
	v.SetDefault("cache.tagTtlSeconds", d.Cache.TagTtlSeconds)
	v.SetDefault("cache.tagMaxEntries", d.Cache.TagMaxEntries)
	v.SetDefault("cache.avatarMaxEntries", d.Cache.AvatarMaxEntries)

	v.SetDefault("diff.maxPreviewLines", d.Diff.MaxPreviewLines)

	v.SetDefault("layout.laneWidth", d.Layout.LaneWidth)
	v.SetDefault("layout.rowHeight", d.Layout.RowHeight)
	v.SetDefault("layout.nodeSize", d.Layout.NodeSize)
	v.SetDefault("layout.headNodeSize", d.Layout.HeadNodeSize)

	v.SetDefault("watcher.enabled", d.Watcher.Enabled)
	v.SetDefault("watcher.debounceMs", d.Watcher.DebounceMs)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.tokenHash", d.Server.TokenHash)

	v.SetDefault("storage.enabled", d.Storage.Enabled)

	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSizeMb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)

	v.SetDefault("log.defaultLimit", d.Log.DefaultLimit)
}

// Save writes the configuration to .gitnet/config.json
func (c *Config) Save(repoRoot string) error {
	if _, err := paths.EnsureStateDir(repoRoot); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(paths.ConfigPath(repoRoot), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if strings.TrimSpace(c.Git.Binary) == "" {
		return &ConfigError{Field: "git.binary", Message: "must not be empty"}
	}
	if c.Git.MaxOutputBytes <= 0 {
		return &ConfigError{Field: "git.maxOutputBytes", Message: "must be positive"}
	}
	if c.Git.TimeoutMs < 0 {
		return &ConfigError{Field: "git.timeoutMs", Message: "must not be negative"}
	}

	positive := []struct {
		field string
		value int
	}{
		{"git.auditCapacity", c.Git.AuditCapacity},
		{"cache.branchTtlSeconds", c.Cache.BranchTtlSeconds},
		{"cache.branchMaxEntries", c.Cache.BranchMaxEntries},
		{"cache.tagTtlSeconds", c.Cache.TagTtlSeconds},
		{"cache.tagMaxEntries", c.Cache.TagMaxEntries},
		{"cache.avatarMaxEntries", c.Cache.AvatarMaxEntries},
		{"diff.maxPreviewLines", c.Diff.MaxPreviewLines},
		{"watcher.debounceMs", c.Watcher.DebounceMs},
		{"log.defaultLimit", c.Log.DefaultLimit},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return &ConfigError{Field: p.field, Message: "must be positive"}
		}
	}

	if c.Layout.LaneWidth <= 0 || c.Layout.RowHeight <= 0 {
		return &ConfigError{Field: "layout", Message: "lane width and row height must be positive"}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: fmt.Sprintf("invalid port %d", c.Server.Port)}
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// authorFile is the on-disk layout of an author map:
//
//	[authors]
//	"jane@example.com" = "janedoe"
type authorFile struct {
	Authors map[string]string `toml:"authors"`
}

// LoadAuthorMap reads a TOML file mapping author emails to GitHub usernames.
// Emails are lower-cased and trimmed.
func LoadAuthorMap(path string) (map[string]string, error) {
	var f authorFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to read author map %s: %w", path, err)
	}

	authors := make(map[string]string, len(f.Authors))
	for email, user := range f.Authors {
		email = strings.ToLower(strings.TrimSpace(email))
		user = strings.TrimSpace(user)
		if email == "" || user == "" {
			continue
		}
		authors[email] = user
	}
	return authors, nil
}
