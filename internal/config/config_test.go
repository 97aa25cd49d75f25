package config

import (
	"testing"
)

// mapBackend is an in-memory ConfigBackend for tests.
type mapBackend struct {
	strings map[string]string
	ints    map[string]int
}

func newMapBackend() *mapBackend {
	return &mapBackend{strings: map[string]string{}, ints: map[string]int{}}
}

func (b *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.strings[key]
	return v, ok, nil
}

func (b *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.ints[key]
	return v, ok, nil
}

func (b *mapBackend) SetString(key, val string) error {
	b.strings[key] = val
	return nil
}

func (b *mapBackend) SetInt(key string, val int) error {
	b.ints[key] = val
	return nil
}

func (b *mapBackend) Delete(key string) error {
	delete(b.strings, key)
	delete(b.ints, key)
	return nil
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(newMapBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 4800 {
		t.Errorf("Server.Port = %d, want 4800", cfg.Server.Port)
	}
	if cfg.Inference.BaseURL != "http://localhost:8500" {
		t.Errorf("Inference.BaseURL = %q", cfg.Inference.BaseURL)
	}
	if cfg.Inference.PatchSize != 224 {
		t.Errorf("Inference.PatchSize = %d, want 224", cfg.Inference.PatchSize)
	}
	if cfg.Match.Threshold != 0.48 {
		t.Errorf("Match.Threshold = %f, want 0.48", cfg.Match.Threshold)
	}
	if cfg.Match.Parallelism != 1 {
		t.Errorf("Match.Parallelism = %d, want 1", cfg.Match.Parallelism)
	}
	if cfg.Remote.BaseURL != "" {
		t.Errorf("Remote.BaseURL = %q, want empty (local-only)", cfg.Remote.BaseURL)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestBackendOverrides(t *testing.T) {
	b := newMapBackend()
	b.ints["server.port"] = 9999
	b.strings["inference.detect_model"] = "custom-model"
	b.strings["match.threshold"] = "0.75"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Inference.DetectModel != "custom-model" {
		t.Errorf("Inference.DetectModel = %q", cfg.Inference.DetectModel)
	}
	if cfg.Match.Threshold != 0.75 {
		t.Errorf("Match.Threshold = %f, want 0.75", cfg.Match.Threshold)
	}
}

func TestBackendBadFloatKeepsDefault(t *testing.T) {
	b := newMapBackend()
	b.strings["match.threshold"] = "not a number"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Match.Threshold != 0.48 {
		t.Errorf("Match.Threshold = %f, want default 0.48", cfg.Match.Threshold)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POTHOLE_SERVER_PORT", "5001")
	t.Setenv("POTHOLE_MATCH_THRESHOLD", "0.6")
	t.Setenv("POTHOLE_API_TOKEN", "sekrit")
	t.Setenv("POTHOLE_REMOTE_BASE_URL", "https://samples.example.com")

	b := newMapBackend()
	// Env wins over the backend.
	b.ints["server.port"] = 9999

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 5001 {
		t.Errorf("Server.Port = %d, want 5001", cfg.Server.Port)
	}
	if cfg.Match.Threshold != 0.6 {
		t.Errorf("Match.Threshold = %f, want 0.6", cfg.Match.Threshold)
	}
	if cfg.API.Token != "sekrit" {
		t.Errorf("API.Token = %q", cfg.API.Token)
	}
	if cfg.Remote.BaseURL != "https://samples.example.com" {
		t.Errorf("Remote.BaseURL = %q", cfg.Remote.BaseURL)
	}
}

func TestEnvBadIntKeepsDefault(t *testing.T) {
	t.Setenv("POTHOLE_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(newMapBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4800 {
		t.Errorf("Server.Port = %d, want default 4800", cfg.Server.Port)
	}
}

func TestShowAll_HidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.API.Token = "sekrit"
	cfg.Remote.APIToken = "also-sekrit"

	for _, info := range ShowAll(cfg) {
		if info.Key == "api.token" || info.Key == "remote.api_token" {
			t.Errorf("secret key %s exposed by ShowAll", info.Key)
		}
		if info.Value == "sekrit" || info.Value == "also-sekrit" {
			t.Errorf("secret value exposed under key %s", info.Key)
		}
	}
}

func TestValidKeys(t *testing.T) {
	keys := ValidKeys()
	if len(keys) == 0 {
		t.Fatal("no valid keys")
	}
	for _, k := range keys {
		if k == "api.token" {
			t.Error("secret key listed as settable")
		}
	}
}
