package app

import "github.com/easynet-world/easy-mcp-server/internal/config"

// Config is the CLI-facing launch configuration for the serve command,
// modeled on the teacher's app.Config (Debug/Silent/ConfigPath): a thin
// wrapper the serve command's flags populate before NewApplication builds
// the real services.
type Config struct {
	Debug  bool
	Silent bool

	// Server carries the environment-driven settings (internal/config) as
	// LoadFromEnv returns them; no command-line flag overrides these fields.
	Server config.ServerConfig
}

// NewConfig builds a launch Config seeded from the process environment.
func NewConfig(debug, silent bool) *Config {
	return &Config{
		Debug:  debug,
		Silent: silent,
		Server: config.LoadFromEnv(),
	}
}
