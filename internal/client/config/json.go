package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/migrainelog/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell an absent key apart from a zero value.
type JsonConfig struct {
	ServerEndpointAddr *string  `json:"server_endpoint_addr"`
	UseRemote          *bool    `json:"use_remote"`
	ProjectID          *string  `json:"project_id"`
	APIKey             *string  `json:"api_key"`
	DBPath             *string  `json:"db_path"`
	LocalCapacity      *int64   `json:"local_capacity"`
	MigrationRate      *float64 `json:"migration_rate"`
	LogLevel           *string  `json:"log_level"`
}

// parseJson overlays Config with the keys present in the JSON file named by
// -c or -config. Without either flag nothing happens. Read and decode errors
// panic.
func parseJson(cfg *Config, args []string) {
	jsonConfigFile := flagx.JsonConfigFlags(args)
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	set(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	set(&cfg.UseRemote, jc.UseRemote)
	set(&cfg.ProjectID, jc.ProjectID)
	set(&cfg.APIKey, jc.APIKey)
	set(&cfg.DBPath, jc.DBPath)
	set(&cfg.LocalCapacity, jc.LocalCapacity)
	set(&cfg.MigrationRate, jc.MigrationRate)
	set(&cfg.LogLevel, jc.LogLevel)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
