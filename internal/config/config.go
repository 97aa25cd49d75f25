package config

import (
	"os"
	"path/filepath"
)

type Config struct {
	Server    ServerConfig
	Inference InferenceConfig
	Match     MatchConfig
	Remote    RemoteConfig
	Storage   StorageConfig
	Log       LogConfig
	API       APIConfig
}

type ServerConfig struct {
	Port int
}

type InferenceConfig struct {
	BaseURL     string
	DetectModel string
	EmbedModel  string
	PatchSize   int
}

type MatchConfig struct {
	Threshold   float64
	Parallelism int
}

// RemoteConfig selects the authoritative sample backend. An empty BaseURL
// means local-only mode; the choice is made once at startup.
type RemoteConfig struct {
	BaseURL  string
	APIToken string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type APIConfig struct {
	Token string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4800,
		},
		Inference: InferenceConfig{
			BaseURL:     "http://localhost:8500",
			DetectModel: "yolov8n-road",
			EmbedModel:  "mobilenet-v3-embed",
			PatchSize:   224,
		},
		Match: MatchConfig{
			Threshold:   0.48,
			Parallelism: 1,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "pothole-data"
		}
	}
	return filepath.Join(dir, "pothole-detector")
}

// Load reads configuration from the JSON config file at
// $XDG_CONFIG_HOME/pothole-detector/config.json, then applies POTHOLE_*
// environment variable overrides. Missing file and missing keys fall back to
// defaults; no key is mandatory.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}
