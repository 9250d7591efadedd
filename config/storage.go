package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StorageDriver selects the local storage backend.
type StorageDriver string

const (
	// StorageDriverFile keeps local storage in a YAML file (default, single device).
	StorageDriverFile StorageDriver = "file"
	// StorageDriverRedis keeps local storage in a Redis hash (shared kiosks, test rigs).
	StorageDriverRedis StorageDriver = "redis"
	// StorageDriverKeyring keeps local storage in the operating system keychain.
	StorageDriverKeyring StorageDriver = "keyring"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageDriver.
func (d *StorageDriver) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "file", "redis", "keyring":
		*d = StorageDriver(v)
		return nil
	default:
		return fmt.Errorf("invalid StorageDriver: %q (valid options: file, redis, keyring)", v)
	}
}

// StorageConfig describes the device's persisted key-value storage.
type StorageConfig struct {
	Driver StorageDriver `env:"STORAGE_DRIVER"    envDefault:"file"`
	// Path is the YAML file used by the file driver. Defaults to <user config dir>/greenhands/storage.yaml.
	Path string `env:"STORAGE_PATH"`
	// Namespace isolates devices sharing one Redis or one keychain.
	Namespace string `env:"STORAGE_NAMESPACE" envDefault:"default"`
}

// Sanitize fills the default file location.
func (c *StorageConfig) Sanitize() {
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" {
		c.Path = DefaultStoragePath()
	}
	c.Namespace = strings.TrimSpace(c.Namespace)
	if c.Namespace == "" {
		c.Namespace = "default"
	}
}

// DefaultStoragePath returns the per-user storage file location.
func DefaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "greenhands", "storage.yaml")
}

// DBConfig contains PostgreSQL configuration for operator tooling that talks to the
// profiles table directly.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	Name     string `env:"NAME"     envDefault:"postgres"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}
