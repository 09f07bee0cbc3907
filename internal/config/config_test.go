package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: collab-test
server:
  host: 127.0.0.1
  port: 9090
hub:
  registry_shards: 8
  send_queue_size: 16
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "collab-test" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "collab-test")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Hub.RegistryShards != 8 {
		t.Errorf("Hub.RegistryShards = %d, want 8", cfg.Hub.RegistryShards)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: collab-test
database:
  enabled: true
  host: localhost
  name: collab
  user: collab
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: collab-test
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultServerPort)
	}
	if cfg.Hub.RegistryShards != DefaultRegistryShards {
		t.Errorf("Hub.RegistryShards = %d, want %d", cfg.Hub.RegistryShards, DefaultRegistryShards)
	}
	if cfg.Hub.SendQueueSize != DefaultSendQueueSize {
		t.Errorf("Hub.SendQueueSize = %d, want %d", cfg.Hub.SendQueueSize, DefaultSendQueueSize)
	}
	if cfg.Hub.IdleTimeout != 0 {
		t.Errorf("Hub.IdleTimeout = %v, want 0 (disabled by default)", cfg.Hub.IdleTimeout)
	}
	if cfg.Redis.PresenceTTL != DefaultPresenceTTL {
		t.Errorf("Redis.PresenceTTL = %v, want %v", cfg.Redis.PresenceTTL, DefaultPresenceTTL)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, DefaultLogLevel)
	}
}

func TestLoadAndValidate(t *testing.T) {
	yaml := `
instance:
  id: collab-test
hub:
  idle_timeout: 90s
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Hub.IdleTimeout != 90*time.Second {
		t.Errorf("Hub.IdleTimeout = %v, want 90s", cfg.Hub.IdleTimeout)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing instance id", `
server:
  port: 8080
`},
		{"bad port", `
instance:
  id: x
server:
  port: 99999
`},
		{"database enabled without host", `
instance:
  id: x
database:
  enabled: true
  name: collab
  user: collab
  password: pw
`},
		{"redis enabled without addr", `
instance:
  id: x
redis:
  enabled: true
`},
		{"kafka enabled without topic", `
instance:
  id: x
kafka:
  enabled: true
  brokers: [localhost:9092]
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, tt.yaml)
			if _, err := LoadAndValidate(path); err == nil {
				t.Error("LoadAndValidate succeeded, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load succeeded for missing file, want error")
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
