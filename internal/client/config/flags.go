package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/migrainelog/internal/flagx"
)

var knownFlags = []string{"-a", "-r", "-p", "-k", "-d", "-s", "-m", "-l"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the backend server
//	-r bool     use the remote backend
//	-p string   project id
//	-k string   API key
//	-d string   local database file
//	-s int      local quota in bytes
//	-m float    migration rate in entries per second (0 = unlimited)
//	-l string   log level
//
// args are filtered with flagx.FilterArgs first so the -c/-config flag and
// anything else unknown is left alone.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.BoolVar(&cfg.UseRemote, "r", cfg.UseRemote, "use the remote backend")
	fs.StringVar(&cfg.ProjectID, "p", cfg.ProjectID, "project id")
	fs.StringVar(&cfg.APIKey, "k", cfg.APIKey, "API key")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "local database file")
	fs.Int64Var(&cfg.LocalCapacity, "s", cfg.LocalCapacity, "local quota in bytes")
	fs.Float64Var(&cfg.MigrationRate, "m", cfg.MigrationRate, "migration rate (entries per second, 0 = unlimited)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
