package config

import (
	"strings"

	"golang.org/x/time/rate"
)

// Config holds runtime settings for the journal CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - UseRemote: store the journal on the server instead of on this device.
//   - ProjectID / APIKey: identify this client installation to the server.
//   - DBPath: SQLite file holding the local journal.
//   - LocalCapacity: quota of the local journal in bytes.
//   - MigrationRate: entries uploaded per second during migration, 0 for no limit.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerEndpointAddr string
	UseRemote          bool
	ProjectID          string
	APIKey             string
	DBPath             string
	LocalCapacity      int64
	MigrationRate      float64
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults. Remote mode is off.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.UseRemote = false
	c.ProjectID = ""
	c.APIKey = ""
	c.DBPath = "migrainelog.db"
	c.LocalCapacity = 5 << 20
	c.MigrationRate = 0
	c.LogLevel = "info"
}

// RemoteEnabled reports whether remote mode is both requested and fully
// configured. A missing connection parameter disables it.
func (c *Config) RemoteEnabled() bool {
	if !c.UseRemote {
		return false
	}
	for _, v := range []string{c.ServerEndpointAddr, c.ProjectID, c.APIKey} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// MigrationLimit converts MigrationRate for a rate.Limiter.
func (c *Config) MigrationLimit() rate.Limit {
	if c.MigrationRate <= 0 {
		return rate.Inf
	}
	return rate.Limit(c.MigrationRate)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
