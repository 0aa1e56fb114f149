// Package config loads runtime configuration for the journal CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Only keys present in the file are applied:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "use_remote": true,
//	  "project_id": "migraine-journal",
//	  "api_key": "k-123",
//	  "db_path": "/var/lib/migrainelog/journal.db",
//	  "local_capacity": 5242880,
//	  "migration_rate": 5,
//	  "log_level": "debug"
//	}
//
// Remote mode is used only when use_remote is set and the endpoint, project
// id and API key are all non-empty (see (*Config).RemoteEnabled).
package config
