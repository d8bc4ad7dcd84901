package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// cliWithPath returns a CLI struct pointing at the given config file.
func cliWithPath(path string) *CLI {
	return &CLI{Config: path}
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[server]
host = "127.0.0.1"
port = 9000
body_max_bytes = 5242880

[proxy]
token = "s3cret"
headers_to_delete = "X-Debug, Cookie"

[upstream]
timeout_seconds = 60
idle_connections = 50

[log]
level = "debug"
format = "text"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
	if cfg.Proxy.Token != "s3cret" {
		t.Errorf("Proxy.Token = %q, want %q", cfg.Proxy.Token, "s3cret")
	}
	if !cfg.Proxy.AuthEnabled() {
		t.Error("AuthEnabled() = false, want true")
	}
	if cfg.Upstream.TimeoutSeconds != 60 {
		t.Errorf("Upstream.TimeoutSeconds = %d, want %d", cfg.Upstream.TimeoutSeconds, 60)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	// An explicit empty path with no file at the search locations must not
	// fail: the proxy runs from environment and defaults alone.
	cfg, err := Load(&CLI{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, 8080)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Proxy.AuthEnabled() {
		t.Error("AuthEnabled() = true, want false with no token configured")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %q/%q, want info/json", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Upstream.TimeoutSeconds != 120 {
		t.Errorf("Upstream.TimeoutSeconds = %d, want %d", cfg.Upstream.TimeoutSeconds, 120)
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[server]
port = 9000

[proxy]
token = "from-file"
headers_to_delete = "X-File"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cli := &CLI{
		Config:          path,
		Port:            9999,
		Token:           "from-env",
		HeadersToDelete: "X-Env, Cookie",
		LogLevel:        "warn",
	}
	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9999)
	}
	if cfg.Proxy.Token != "from-env" {
		t.Errorf("Proxy.Token = %q, want %q", cfg.Proxy.Token, "from-env")
	}
	if cfg.Proxy.HeadersToDelete != "X-Env, Cookie" {
		t.Errorf("Proxy.HeadersToDelete = %q, want %q", cfg.Proxy.HeadersToDelete, "X-Env, Cookie")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	cfg, err := Load(&CLI{Port: 70000})
	if err == nil {
		t.Fatalf("Load() = %+v, want error for out-of-range port", cfg)
	}
	if !strings.Contains(err.Error(), "server.port") {
		t.Errorf("error = %v, want mention of server.port", err)
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	_, err := Load(&CLI{LogLevel: "verbose"})
	if err == nil {
		t.Fatal("Load() expected error for invalid log level, got nil")
	}
}

func TestLoad_MetricsPathConflict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[metrics]
enabled = true
path = "/proxy/metrics"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cliWithPath(path))
	if err == nil {
		t.Fatal("Load() expected error for reserved metrics path, got nil")
	}
	if !strings.Contains(err.Error(), "reserved route") {
		t.Errorf("error = %v, want mention of reserved route", err)
	}
}

func TestDenySet(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "Cookie", []string{"cookie"}},
		{"trimmed and lower-cased", " Cookie , X-INTERNAL ", []string{"cookie", "x-internal"}},
		{"skips empty entries", "Cookie,,X-Debug,", []string{"cookie", "x-debug"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProxyConfig{HeadersToDelete: tt.raw}
			got := p.DenySet()
			if len(got) != len(tt.want) {
				t.Fatalf("DenySet() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("DenySet()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:8080")
	}
}
