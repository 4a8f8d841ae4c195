// Package config loads cartsync settings: defaults, then an optional YAML
// file, then environment variables (optionally seeded from a .env file).
// Command-line flags are applied last by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backends.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Environment variables read by Load.
const (
	EnvBackend           = "CARTSYNC_BACKEND"
	EnvDatabase          = "CARTSYNC_DB"
	EnvSession           = "CARTSYNC_SESSION"
	EnvProjectID         = "FIRESTORE_PROJECT_ID"
	EnvCredentialsFile   = "FIRESTORE_CREDENTIALS_FILE"
	EnvGoogleCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Config is the full configuration.
type Config struct {
	Backend      string        `yaml:"backend"`
	Database     string        `yaml:"database"`
	Session      string        `yaml:"session"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MetricsAddr  string        `yaml:"metrics_addr"`

	Firestore Firestore `yaml:"firestore"`
	Feedback  Feedback  `yaml:"feedback"`
}

// Firestore configures the Firestore backend and Firebase Auth.
type Firestore struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	CartsCollection string `yaml:"carts_collection"`
	ItemsCollection string `yaml:"items_collection"`
}

// Feedback holds toast and animation delays.
type Feedback struct {
	Toast      time.Duration `yaml:"toast"`
	AddedToast time.Duration `yaml:"added_toast"`
	Button     time.Duration `yaml:"button"`
	Badge      time.Duration `yaml:"badge"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend:      BackendSQLite,
		Database:     "cartsync.db",
		Session:      ".cartsync/session.yaml",
		PollInterval: 2 * time.Second,
		MetricsAddr:  ":9464",
		Firestore: Firestore{
			CartsCollection: "carts",
			ItemsCollection: "cartItems",
		},
		Feedback: Feedback{
			Toast:      2500 * time.Millisecond,
			AddedToast: 3000 * time.Millisecond,
			Button:     250 * time.Millisecond,
			Badge:      500 * time.Millisecond,
		},
	}
}

// Load builds the configuration. path may be empty (defaults only).
// The result is validated.
func Load(path string) (Config, error) {
	cfg, err := LoadUnvalidated(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadUnvalidated is Load without the final Validate, for callers that
// apply further overrides first.
func LoadUnvalidated(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadDotEnv seeds the process environment from a .env file. Variables
// already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v, ok := lookup(EnvBackend); ok {
		c.Backend = strings.ToLower(v)
	}
	if v, ok := lookup(EnvDatabase); ok {
		c.Database = v
	}
	if v, ok := lookup(EnvSession); ok {
		c.Session = v
	}
	if v, ok := lookup(EnvProjectID); ok {
		c.Firestore.ProjectID = v
	}
	// The cartsync-specific variable beats the Google-wide one.
	if v, ok := lookup(EnvCredentialsFile); ok {
		c.Firestore.CredentialsFile = v
	} else if v, ok := lookup(EnvGoogleCredentials); ok && c.Firestore.CredentialsFile == "" {
		c.Firestore.CredentialsFile = v
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if strings.TrimSpace(c.Database) == "" {
			return errors.New("config: database path is required for the sqlite backend")
		}
	case BackendFirestore:
		if strings.TrimSpace(c.Firestore.ProjectID) == "" {
			return errors.New("config: firestore.project_id is required for the firestore backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q (want %s or %s)", c.Backend, BackendSQLite, BackendFirestore)
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"poll_interval", c.PollInterval},
		{"feedback.toast", c.Feedback.Toast},
		{"feedback.added_toast", c.Feedback.AddedToast},
		{"feedback.button", c.Feedback.Button},
		{"feedback.badge", c.Feedback.Badge},
	}
	for _, f := range durations {
		if f.d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", f.name, f.d)
		}
	}
	return nil
}
