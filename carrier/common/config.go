// Package common provides the configuration and logging plumbing shared by
// the carrier layer and the command line tools.
package common

import (
	"fmt"
	"strings"
)

// DefaultSocketDir is where rendezvous socket entries are created when no
// directory is configured. Both ends of a connection must derive the same
// path, so the per-process temp dir is deliberately not used.
const DefaultSocketDir = "/tmp"

// --------------------------------------------------------------------------
// Configuration struct
// --------------------------------------------------------------------------

// Config holds all settings of the carrier layer and the command line tools.
type Config struct {
	// SocketDir is the directory for rendezvous socket entries
	SocketDir string

	// TapTraffic wraps streams in a monitoring tee
	TapTraffic bool

	// MetricsAddr exposes prometheus metrics on this address when set
	MetricsAddr string

	// Logging configuration
	LogLevel string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		SocketDir: DefaultSocketDir,
		LogLevel:  "info",
	}
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Carrier")
	addField("Socket Directory", c.SocketDir)
	addField("Tap Traffic", fmt.Sprintf("%t", c.TapTraffic))

	if c.MetricsAddr != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsAddr)
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
