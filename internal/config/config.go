// Package config loads the process-wide, immutable configuration object
// described in §5/§6: paths to the capture-file directory, the per-file
// index directory, the master index directory, the on-disk segment size,
// and the index build batch size.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/negbie/logp"
)

// EnvVar names the environment variable that points at the TOML config
// file (§6).
const EnvVar = "PACKETDB_CONFIG"

// Config is the decoded on-disk configuration (§6). All paths are
// absolute.
type Config struct {
	DBPath           string `toml:"db_path"`
	IndexPath        string `toml:"index_path"`
	MasterIndexPath  string `toml:"master_index_path"`
	DBSegmentSize    uint64 `toml:"db_segment_size"`
	BlockSize        uint64 `toml:"block_size"`
}

var (
	once     sync.Once
	instance *Config
	loadErr  error
)

// Load decodes the TOML file at path into a Config, independent of the
// process-wide singleton. Used by components that take an injected
// *Config at construction per §9.
func Load(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if c.DBPath == "" || c.IndexPath == "" || c.MasterIndexPath == "" {
		return nil, fmt.Errorf("config: %s missing one of db_path/index_path/master_index_path", path)
	}
	return &c, nil
}

// Get returns the process-wide singleton, initializing it from the file
// named by PACKETDB_CONFIG on first access. Per §5, a missing or malformed
// config is fatal: the process exits before serving any query.
func Get() *Config {
	once.Do(func() {
		path := os.Getenv(EnvVar)
		if path == "" {
			logp.Critical("config: %s is not set", EnvVar)
			os.Exit(1)
		}
		instance, loadErr = Load(path)
		if loadErr != nil {
			logp.Critical("config: %v", loadErr)
			os.Exit(1)
		}
	})
	return instance
}

// Reset clears the singleton; for tests only.
func Reset() {
	once = sync.Once{}
	instance = nil
	loadErr = nil
}
