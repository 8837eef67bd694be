package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/shelfkeep/internal/config"
)

func TestLibraryPaths(t *testing.T) {
	l := config.LibraryConfig{Dir: "/lib"}
	if got, want := l.BooksDir(), filepath.Join("/lib", "books"); got != want {
		t.Errorf("BooksDir = %q, want %q", got, want)
	}
	if got, want := l.DatabasePath(), filepath.Join("/lib", "library.db"); got != want {
		t.Errorf("DatabasePath = %q, want %q", got, want)
	}
	if got, want := l.ScratchDir(), filepath.Join("/lib", "tmp"); got != want {
		t.Errorf("ScratchDir = %q, want %q", got, want)
	}
}

func TestDatabasePath_Override(t *testing.T) {
	l := config.LibraryConfig{Dir: "/lib", Database: "/elsewhere/books.db"}
	if got := l.DatabasePath(); got != "/elsewhere/books.db" {
		t.Errorf("DatabasePath = %q, want override", got)
	}
}

func TestEffectiveTokenFile(t *testing.T) {
	d := config.DriveConfig{}
	if got, want := d.EffectiveTokenFile("/lib"), filepath.Join("/lib", "drive_token.json"); got != want {
		t.Errorf("EffectiveTokenFile = %q, want %q", got, want)
	}
	d.TokenFile = "/custom/token.json"
	if got := d.EffectiveTokenFile("/lib"); got != "/custom/token.json" {
		t.Errorf("EffectiveTokenFile = %q, want custom", got)
	}
}

func TestEffectiveTokenTTL(t *testing.T) {
	if got := (config.DriveConfig{}).EffectiveTokenTTL(); got != time.Hour {
		t.Errorf("EffectiveTokenTTL default = %v, want 1h", got)
	}
	if got := (config.DriveConfig{TokenTTL: 10 * time.Minute}).EffectiveTokenTTL(); got != 10*time.Minute {
		t.Errorf("EffectiveTokenTTL = %v, want 10m", got)
	}
}

func TestDefaultPath(t *testing.T) {
	p := config.DefaultPath()
	if !strings.HasSuffix(p, "config.yml") {
		t.Errorf("DefaultPath = %q, should end with config.yml", p)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Drive.NamePrefix != "books_export" {
		t.Errorf("NamePrefix = %q, want books_export", cfg.Drive.NamePrefix)
	}
	if cfg.Drive.APIBase != "https://www.googleapis.com/drive/v3" {
		t.Errorf("APIBase = %q", cfg.Drive.APIBase)
	}
	if cfg.Library.Dir == "" {
		t.Error("Library.Dir should have a default")
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yml")
	in := &config.Config{
		Library: config.LibraryConfig{Dir: "/srv/books"},
		Drive: config.DriveConfig{
			APIBase:    "http://localhost:9999",
			UploadBase: "http://localhost:9999/upload",
			NamePrefix: "shelf_backup",
			TokenTTL:   30 * time.Minute,
		},
		Log: config.LogConfig{Level: "debug"},
	}
	if err := config.Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	out, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Library.Dir != "/srv/books" {
		t.Errorf("Library.Dir = %q", out.Library.Dir)
	}
	if out.Drive.NamePrefix != "shelf_backup" {
		t.Errorf("NamePrefix = %q", out.Drive.NamePrefix)
	}
	if out.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", out.Log.Level)
	}
}
