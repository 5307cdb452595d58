package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Upload.MaxFileSize != 52428800 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 52428800)
	}
	if cfg.Map.DefaultBaseStyle != "osm" {
		t.Errorf("Map.DefaultBaseStyle = %q, want %q", cfg.Map.DefaultBaseStyle, "osm")
	}
	if cfg.Rate.RequestsPerMinute != 200 {
		t.Errorf("Rate.RequestsPerMinute = %d, want %d", cfg.Rate.RequestsPerMinute, 200)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("MAP_DEFAULT_BASE_STYLE", "carto-dark")
	os.Setenv("MAP_DEFAULT_ZOOM", "7.5")
	os.Setenv("LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("MAP_DEFAULT_BASE_STYLE")
		os.Unsetenv("MAP_DEFAULT_ZOOM")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Map.DefaultBaseStyle != "carto-dark" {
		t.Errorf("Map.DefaultBaseStyle = %q, want %q", cfg.Map.DefaultBaseStyle, "carto-dark")
	}
	if cfg.Map.DefaultZoom != 7.5 {
		t.Errorf("Map.DefaultZoom = %g, want %g", cfg.Map.DefaultZoom, 7.5)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"bad port", "SERVER_PORT", "99999", "SERVER_PORT"},
		{"bad lat", "MAP_DEFAULT_CENTER_LAT", "123", "MAP_DEFAULT_CENTER_LAT"},
		{"bad lng", "MAP_DEFAULT_CENTER_LNG", "-ponto", "invalid value"},
		{"bad log level", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"bad log format", "LOG_FORMAT", "xml", "LOG_FORMAT"},
		{"bad duration", "SERVER_READ_TIMEOUT", "fast", "invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv(tt.key, tt.value)
			defer os.Unsetenv(tt.key)

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() expected error for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	os.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.1 ,")
	defer os.Unsetenv("TRUSTED_PROXIES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"10.0.0.0/8", "192.168.1.1"}
	if len(cfg.Server.TrustedProxies) != len(want) {
		t.Fatalf("TrustedProxies = %v, want %v", cfg.Server.TrustedProxies, want)
	}
	for i := range want {
		if cfg.Server.TrustedProxies[i] != want[i] {
			t.Errorf("TrustedProxies[%d] = %q, want %q", i, cfg.Server.TrustedProxies[i], want[i])
		}
	}
}

func TestServerConfig_Addr(t *testing.T) {
	c := &ServerConfig{Host: "127.0.0.1", Port: 3000}
	if got := c.Addr(); got != "127.0.0.1:3000" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:3000")
	}

	c.Host = ""
	if got := c.Addr(); got != ":3000" {
		t.Errorf("Addr() = %q, want %q", got, ":3000")
	}
}
