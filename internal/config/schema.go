package config

import (
	"path/filepath"
	"time"
)

// Config is the top-level shelfkeep configuration.
type Config struct {
	Library  LibraryConfig  `mapstructure:"library" yaml:"library"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Drive    DriveConfig    `mapstructure:"drive" yaml:"drive"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// LibraryConfig locates the private book storage.
type LibraryConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
}

// DatabaseConfig tunes the sqlite connection.
type DatabaseConfig struct {
	Debug       bool          `mapstructure:"debug" yaml:"debug,omitempty"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout,omitempty"`
}

// DriveConfig holds remote backup settings.
type DriveConfig struct {
	APIBase         string        `mapstructure:"api_base" yaml:"api_base"`
	UploadBase      string        `mapstructure:"upload_base" yaml:"upload_base"`
	NamePrefix      string        `mapstructure:"name_prefix" yaml:"name_prefix"`
	TokenFile       string        `mapstructure:"token_file" yaml:"token_file,omitempty"`
	TokenTTL        time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	ClientID        string        `mapstructure:"client_id" yaml:"client_id,omitempty"`
	ClientSecretEnv string        `mapstructure:"client_secret_env" yaml:"client_secret_env,omitempty"`
	ClientSecret    string        `mapstructure:"-" yaml:"-"` // resolved at runtime, never written
}

// LogConfig sets the diagnostic log level (debug, info, warn, error).
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// BooksDir is where imported and restored files live.
func (l LibraryConfig) BooksDir() string {
	return filepath.Join(l.Dir, "books")
}

// DatabasePath returns the catalog database file, defaulting to
// <dir>/library.db.
func (l LibraryConfig) DatabasePath() string {
	if l.Database != "" {
		return l.Database
	}
	return filepath.Join(l.Dir, "library.db")
}

// ScratchDir is used for temporary archives and restore unpacking.
func (l LibraryConfig) ScratchDir() string {
	return filepath.Join(l.Dir, "tmp")
}

// EffectiveTokenFile returns the token cache path, defaulting next to the
// library.
func (d DriveConfig) EffectiveTokenFile(libraryDir string) string {
	if d.TokenFile != "" {
		return d.TokenFile
	}
	return filepath.Join(libraryDir, "drive_token.json")
}

// EffectiveTokenTTL returns the configured token lifetime or one hour.
func (d DriveConfig) EffectiveTokenTTL() time.Duration {
	if d.TokenTTL > 0 {
		return d.TokenTTL
	}
	return time.Hour
}
