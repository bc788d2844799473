package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Config represents the TOML configuration structure
type Config struct {
	Training struct {
		VocabSize     uint     `toml:"vocab_size"`
		SpecialTokens []string `toml:"special_tokens"`
		Workers       uint     `toml:"workers"`
	} `toml:"training"`

	Logging struct {
		Debug bool `toml:"debug"`
	} `toml:"logging"`
}

var (
	configOnce sync.Once
	config     *Config
	configPath string
)

// GetConfigPaths returns the list of possible config file paths for the current OS
func GetConfigPaths() []string {
	if s := strings.TrimSpace(os.Getenv("BPE_CONFIG")); s != "" {
		return []string{s}
	}

	var paths []string
	home, homeErr := os.UserHomeDir()

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			paths = append(paths, filepath.Join(appData, "bpetrain", "config.toml"))
		}
		if homeErr == nil {
			paths = append(paths, filepath.Join(home, ".bpetrain", "config.toml"))
		}
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			paths = append(paths, filepath.Join(xdgConfig, "bpetrain", "config.toml"))
		}
		if homeErr == nil {
			paths = append(paths,
				filepath.Join(home, ".config", "bpetrain", "config.toml"),
				filepath.Join(home, ".bpetrain", "config.toml"),
			)
		}
	}

	return paths
}

// loadConfig loads the first available configuration file
func loadConfig() (*Config, string, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			var cfg Config
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, "", fmt.Errorf("error parsing config file %s: %w", path, err)
			}
			return &cfg, path, nil
		}
	}
	return nil, "", nil
}

// GetConfigValue returns the value for a given environment variable key from the config file
func GetConfigValue(key string) string {
	configOnce.Do(func() {
		var err error
		config, configPath, err = loadConfig()
		if err != nil {
			slog.Warn("failed to load config file", "error", err)
		} else if config != nil {
			slog.Debug("loaded config file", "path", configPath)
		}
	})

	if config == nil {
		return ""
	}

	switch key {
	case "BPE_VOCAB_SIZE":
		if config.Training.VocabSize > 0 {
			return fmt.Sprintf("%d", config.Training.VocabSize)
		}
	case "BPE_SPECIAL_TOKENS":
		return strings.Join(config.Training.SpecialTokens, ",")
	case "BPE_WORKERS":
		if config.Training.Workers > 0 {
			return fmt.Sprintf("%d", config.Training.Workers)
		}
	case "BPE_DEBUG":
		if config.Logging.Debug {
			return "true"
		}
	}

	return ""
}

// ReloadConfig discards the cached config file so the next lookup reads it again.
func ReloadConfig() {
	configOnce = sync.Once{}
	config, configPath = nil, ""
}

// GenerateExampleConfig returns a commented example TOML configuration
func GenerateExampleConfig() string {
	return `# bpetrain configuration file
# Uncomment and modify values as needed. Environment variables take precedence.

[training]
# Target vocabulary size, including the 256 byte tokens and special tokens
vocab_size = 32000
# Special tokens, assigned ids in this order right after the byte tokens
special_tokens = ["<|endoftext|>"]
# Number of corpus counting workers (default: 0 = min(8, cpus))
workers = 0

[logging]
# Enable debug logging (default: false)
debug = false
`
}
