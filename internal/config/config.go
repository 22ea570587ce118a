package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the main configuration for eivu.
type Config struct {
	InstanceID string           `toml:"instance_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // debug, info, warn or error
	Database   DatabaseConfig   `toml:"database"`
	Gateway    GatewayConfig    `toml:"gateway"`
	Server     ServerConfig     `toml:"server"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// GatewayConfig selects the remote object store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type GatewayConfig struct {
	Type string `toml:"type"` // "memory", "filesystem" or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3"). Credentials left
	// empty fall back to the SDK's default chain.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`
	S3Scheme          string `toml:"s3_scheme,omitempty"` // "https" unless set
}

// ServerConfig configures `eivu serve`.
type ServerConfig struct {
	Listen string `toml:"listen"`
}

// FilesystemConfig holds settings for scanning local drives.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// Environment variables that override credentials from the config file.
const (
	EnvS3AccessKeyID     = "EIVU_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "EIVU_S3_SECRET_ACCESS_KEY"
)

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(instanceID, baseDir string) *Config {
	return &Config{
		InstanceID: instanceID,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		LogLevel:   "info",
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Gateway: GatewayConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "objects"),
		},
		Server: ServerConfig{Listen: "127.0.0.1:8080"},
	}
}

// ApplyEnv overrides S3 credentials with non-empty values from getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvS3AccessKeyID); v != "" {
		c.Gateway.S3AccessKeyID = v
	}
	if v := getenv(EnvS3SecretAccessKey); v != "" {
		c.Gateway.S3SecretAccessKey = v
	}
}

// LoadDotEnv loads environment variables from a .env file in the working
// directory, or from the given files. Missing files are not an error and
// variables already set are left alone.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", name, err)
		}
	}
	return nil
}

// Validate checks that every tagged union carries the fields its type needs.
func (c *Config) Validate() error {
	var errs []error
	if c.InstanceID == "" {
		errs = append(errs, errors.New("instance_id is required"))
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level: %s", c.LogLevel))
	}

	switch c.Database.Type {
	case "memory":
	case "sqlite":
		if c.Database.DataDir == "" {
			errs = append(errs, errors.New("database: data_dir required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("database: unknown type: %q", c.Database.Type))
	}

	switch c.Gateway.Type {
	case "memory", "s3":
	case "filesystem":
		if c.Gateway.FSRoot == "" {
			errs = append(errs, errors.New("gateway: fs_root required for filesystem"))
		}
	default:
		errs = append(errs, fmt.Errorf("gateway: unknown type: %q", c.Gateway.Type))
	}
	if (c.Gateway.S3AccessKeyID == "") != (c.Gateway.S3SecretAccessKey == "") {
		errs = append(errs, errors.New("gateway: s3 access key id and secret must be set together"))
	}

	return errors.Join(errs...)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Unknown keys are rejected
// so typos in hand-edited files surface early.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	meta, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key: %s", undecoded[0])
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes cfg to path. The file may hold S3 credentials, so it
// is created owner-readable only.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
