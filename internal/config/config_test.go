package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvBackend, EnvDatabase, EnvSession, EnvProjectID, EnvCredentialsFile, EnvGoogleCredentials} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 2500*time.Millisecond, cfg.Feedback.Toast)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "cartsync.yaml", `
backend: firestore
poll_interval: 5s
firestore:
  project_id: demo-project
feedback:
  toast: 1500ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendFirestore, cfg.Backend)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, "demo-project", cfg.Firestore.ProjectID)
	assert.Equal(t, "cartItems", cfg.Firestore.ItemsCollection, "unset nested fields keep defaults")
	assert.Equal(t, 1500*time.Millisecond, cfg.Feedback.Toast)
	assert.Equal(t, 250*time.Millisecond, cfg.Feedback.Button)
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "typo.yaml", "backnd: sqlite\n")

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "backnd")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBackend, "FIRESTORE")
	t.Setenv(EnvProjectID, "env-project")
	t.Setenv(EnvGoogleCredentials, "/etc/google.json")
	t.Setenv(EnvSession, "/tmp/session.yaml")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendFirestore, cfg.Backend)
	assert.Equal(t, "env-project", cfg.Firestore.ProjectID)
	assert.Equal(t, "/etc/google.json", cfg.Firestore.CredentialsFile)
	assert.Equal(t, "/tmp/session.yaml", cfg.Session)

	t.Setenv(EnvCredentialsFile, "/etc/cartsync.json")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "/etc/cartsync.json", cfg.Firestore.CredentialsFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default ok", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Backend = "redis" }, "unknown backend"},
		{"sqlite without db", func(c *Config) { c.Database = " " }, "database path"},
		{"firestore without project", func(c *Config) { c.Backend = BackendFirestore }, "project_id"},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }, "poll_interval"},
		{"negative badge", func(c *Config) { c.Feedback.Badge = -time.Second }, "feedback.badge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, ".env", "CARTSYNC_DB=/data/from-dotenv.db\nCARTSYNC_SESSION=/data/session.yaml\n")
	t.Setenv(EnvSession, "/already/set.yaml")
	// godotenv treats a set-but-empty variable as present; t.Setenv above
	// registered the restore, so unsetting is safe.
	require.NoError(t, os.Unsetenv(EnvDatabase))

	require.NoError(t, LoadDotEnv(path))
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/data/from-dotenv.db", cfg.Database)
	assert.Equal(t, "/already/set.yaml", cfg.Session, "existing variables win")

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadUnvalidated_LeavesValidationToCaller(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBackend, "firestore")

	_, err := Load("")
	require.Error(t, err)

	cfg, err := LoadUnvalidated("")
	require.NoError(t, err)
	assert.Equal(t, BackendFirestore, cfg.Backend)
	require.Error(t, cfg.Validate())

	cfg.Backend = BackendSQLite
	assert.NoError(t, cfg.Validate())
}
