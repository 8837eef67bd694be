package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blackwell-systems/shelfkeep/internal/util"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "shelfkeep", "config.yml")
}

// Path returns the config file in effect: SHELFKEEP_CONFIG or the default.
func Path() string {
	if p := os.Getenv("SHELFKEEP_CONFIG"); p != "" {
		return p
	}
	return DefaultPath()
}

// Load reads the config from path (or env). A missing file is not an error;
// defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("library.dir", defaultLibraryDir())
	v.SetDefault("database.debug", false)
	v.SetDefault("database.busy_timeout", 5*time.Second)
	v.SetDefault("drive.api_base", "https://www.googleapis.com/drive/v3")
	v.SetDefault("drive.upload_base", "https://www.googleapis.com/upload/drive/v3")
	v.SetDefault("drive.name_prefix", "books_export")
	v.SetDefault("drive.token_ttl", time.Hour)
	v.SetDefault("drive.client_secret_env", "SHELFKEEP_DRIVE_CLIENT_SECRET")
	v.SetDefault("log.level", "warn")

	v.SetEnvPrefix("SHELFKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = Path()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, isCfgNotFound := err.(viper.ConfigFileNotFoundError); !isCfgNotFound {
				return nil, errors.Wrap(err, "reading config")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}

	// Client secret comes from the environment only.
	if cfg.Drive.ClientSecretEnv != "" {
		cfg.Drive.ClientSecret = os.Getenv(cfg.Drive.ClientSecretEnv)
	}

	cfg.Library.Dir = util.ExpandHome(cfg.Library.Dir)
	cfg.Library.Database = util.ExpandHome(cfg.Library.Database)
	cfg.Drive.TokenFile = util.ExpandHome(cfg.Drive.TokenFile)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithStack(err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	return errors.WithStack(enc.Encode(cfg))
}

func defaultLibraryDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "shelfkeep")
}
