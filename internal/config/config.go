// Package config builds the immutable configuration snapshot the pipeline is
// constructed from. Precedence: built-in defaults, then an optional YAML
// file, then environment variables. The snapshot is never mutated mid-run.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	yaml "gopkg.in/yaml.v3"

	"zfsinstall/internal/secret"
)

type Config struct {
	PoolName        string
	Compression     string
	BootEnvironment string
	Encryption      bool
	Passphrase      *secret.Text
	SwapGiB         int
	Target          string
	LogLevel        zerolog.Level
}

type rawConfig struct {
	Pool            string `yaml:"pool"`
	Compression     string `yaml:"compression"`
	BootEnvironment string `yaml:"boot_environment"`
	Encryption      *bool  `yaml:"encryption"`
	Passphrase      string `yaml:"passphrase"`
	SwapGiB         *int   `yaml:"swap_gib"`
	Target          string `yaml:"target"`
}

func Default() Config {
	return Config{
		PoolName:        "rpool",
		Compression:     "lz4",
		BootEnvironment: "default",
		Encryption:      false,
		Passphrase:      secret.New(""),
		SwapGiB:         4,
		Target:          "/mnt",
		LogLevel:        zerolog.InfoLevel,
	}
}

// DefaultPath returns the config file path, honoring ZI_CONFIG.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv("ZI_CONFIG")); p != "" {
		return p
	}
	return "/etc/zfs-install.yaml"
}

// Load builds the snapshot from defaults, the YAML file at path (ignored if
// absent) and the environment, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if b, err := os.ReadFile(path); err == nil {
		var raw rawConfig
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		applyFile(&cfg, raw)
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyFile(cfg *Config, raw rawConfig) {
	if v := strings.TrimSpace(raw.Pool); v != "" {
		cfg.PoolName = v
	}
	if v := strings.TrimSpace(raw.Compression); v != "" {
		cfg.Compression = v
	}
	if v := strings.TrimSpace(raw.BootEnvironment); v != "" {
		cfg.BootEnvironment = v
	}
	if raw.Encryption != nil {
		cfg.Encryption = *raw.Encryption
	}
	if raw.Passphrase != "" {
		cfg.Passphrase = secret.New(raw.Passphrase)
	}
	if raw.SwapGiB != nil && *raw.SwapGiB > 0 {
		cfg.SwapGiB = *raw.SwapGiB
	}
	if v := strings.TrimSpace(raw.Target); v != "" {
		cfg.Target = v
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ZI_POOL"); v != "" {
		cfg.PoolName = v
	}
	if v := os.Getenv("ZI_COMPRESSION"); v != "" {
		cfg.Compression = v
	}
	if v := os.Getenv("ZI_BOOT_ENV"); v != "" {
		cfg.BootEnvironment = v
	}
	if v := os.Getenv("ZI_ENCRYPT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Encryption = b
		}
	}
	if v := os.Getenv("ZI_PASSPHRASE"); v != "" {
		cfg.Passphrase = secret.New(v)
	}
	if v := os.Getenv("ZI_SWAP_GIB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SwapGiB = n
		}
	}
	if v := os.Getenv("ZI_TARGET"); v != "" {
		cfg.Target = v
	}
	if v := os.Getenv("ZI_LOG"); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			cfg.LogLevel = l
		}
	}
}
