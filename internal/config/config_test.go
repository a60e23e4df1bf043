package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carlostoek/dianabot-auctions/internal/config"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "valid full config",
			yaml: `
database:
  host: "db.example.com"
  port: 5433
  user: "auctiond"
  password: "secret"
  dbname: "auctions"
  sslmode: "require"
  driver: "postgres"
server:
  port: 9090
telemetry:
  service_name: "my-auctiond"
  otlp_endpoint: "localhost:4318"
engine:
  tick_interval: 5s
  ending_soon_window: 2m
  default_min_increment: 25
nats:
  url: "nats://localhost:4222"
redis:
  addr: "localhost:6379"
  view_ttl: 10s
`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Port != 5433 {
					t.Errorf("got db port %d, want %d", cfg.Database.Port, 5433)
				}
				if cfg.Server.Port != 9090 {
					t.Errorf("got server port %d, want %d", cfg.Server.Port, 9090)
				}
				if cfg.Telemetry.ServiceName != "my-auctiond" {
					t.Errorf("got service name %q, want %q", cfg.Telemetry.ServiceName, "my-auctiond")
				}
				if cfg.Engine.TickInterval != 5*time.Second {
					t.Errorf("got tick interval %s, want 5s", cfg.Engine.TickInterval)
				}
				if cfg.Engine.DefaultMinIncrement != 25 {
					t.Errorf("got min increment %d, want 25", cfg.Engine.DefaultMinIncrement)
				}
				if cfg.NATS.URL != "nats://localhost:4222" {
					t.Errorf("got nats url %q", cfg.NATS.URL)
				}
				if cfg.Redis.ViewTTL != 10*time.Second {
					t.Errorf("got view ttl %s, want 10s", cfg.Redis.ViewTTL)
				}
			},
		},
		{
			name:    "defaults applied",
			yaml:    `{}`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Host != "localhost" {
					t.Errorf("got db host %q, want %q", cfg.Database.Host, "localhost")
				}
				if cfg.Database.Port != 5432 {
					t.Errorf("got db port %d, want %d", cfg.Database.Port, 5432)
				}
				if cfg.Server.Port != 8080 {
					t.Errorf("got server port %d, want %d", cfg.Server.Port, 8080)
				}
				if cfg.Telemetry.ServiceName != "auctiond" {
					t.Errorf("got service name %q, want %q", cfg.Telemetry.ServiceName, "auctiond")
				}
				if cfg.Engine.TickInterval != 10*time.Second {
					t.Errorf("got tick interval %s, want 10s", cfg.Engine.TickInterval)
				}
				if cfg.Engine.NotifyBuffer != 256 {
					t.Errorf("got notify buffer %d, want 256", cfg.Engine.NotifyBuffer)
				}
				if cfg.LeaderElection.LeaseName != "auctiond-leader" {
					t.Errorf("got lease name %q, want %q", cfg.LeaderElection.LeaseName, "auctiond-leader")
				}
				if cfg.NATS.URL != "" {
					t.Errorf("got nats url %q, want empty", cfg.NATS.URL)
				}
			},
		},
		{
			name:    "invalid yaml",
			yaml:    `{{{invalid`,
			wantErr: true,
		},
		{
			name: "memory driver accepted",
			yaml: `
database:
  driver: "memory"
`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Driver != "memory" {
					t.Errorf("got driver %q, want %q", cfg.Database.Driver, "memory")
				}
			},
		},
		{
			name: "invalid driver rejected",
			yaml: `
database:
  driver: "mongodb"
`,
			wantErr: true,
		},
		{
			name:    "default driver is postgres",
			yaml:    `{}`,
			wantErr: false,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				if cfg.Database.Driver != "postgres" {
					t.Errorf("got driver %q, want %q", cfg.Database.Driver, "postgres")
				}
			},
		},
		{
			name: "zero tick interval rejected",
			yaml: `
engine:
  tick_interval: 0s
`,
			wantErr: true,
		},
		{
			name: "negative min increment rejected",
			yaml: `
engine:
  default_min_increment: -5
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}

			cfg, err := config.Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user",
		Password: "pass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}
	want := "host=localhost port=5432 user=user password=pass dbname=testdb sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
