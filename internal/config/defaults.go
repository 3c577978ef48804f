// Package config provides configuration loading and defaults for usagelens.
package config

import "time"

// DefaultConfigDir is the default location for usagelens configuration.
const DefaultConfigDir = "~/.config/usagelens"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "usagelens.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// EnvPrefix prefixes environment overrides, e.g. USAGELENS_DB_PATH.
const EnvPrefix = "USAGELENS"

// DefaultServer holds the default API server settings.
var DefaultServer = Server{
	Addr:            ":8080",
	ShutdownTimeout: 10 * time.Second,
}

// DefaultLog holds the default logging settings.
var DefaultLog = Log{
	Level:  "info",
	Format: "text",
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}

// DefaultTelemetry leaves metrics export off.
var DefaultTelemetry = Telemetry{
	Enabled:  false,
	Endpoint: "localhost:4317",
	Insecure: true,
}

// DefaultSessions holds the default session listing settings.
var DefaultSessions = Sessions{
	DefaultLimit: 20,
}
