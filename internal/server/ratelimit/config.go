package ratelimit

import (
	"strings"
	"time"

	"github.com/jonathan/application-tracker/internal/config"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// key is the bucket name for path. Prefix patterns share one bucket across every path
// they match, so /applications/1 and /applications/2 draw from the same tokens.
func (e *EndpointConfig) key(path string) string {
	if e.Path != "" && strings.HasSuffix(e.Path, "/") {
		return e.Path
	}
	return path
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	enabled := config.GetEnvBool("RATE_LIMIT_ENABLED", true)
	if !enabled {
		return &Config{
			Enabled: false,
		}
	}

	return &Config{
		Enabled:         enabled,
		DefaultLimit:    config.GetEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   config.GetEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: config.GetEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(config.GetEnvString("RATE_LIMIT_WHITELIST", "")),
		Blacklist:       parseIPList(config.GetEnvString("RATE_LIMIT_BLACKLIST", "")),
		EndpointConfigs: DefaultEndpointConfigs(config.GetEnvInt("RATE_LIMIT_IMPORT_PER_HOUR", 10)),
	}
}

// DefaultEndpointConfigs returns the endpoint tiers. importPerHour limits portal imports,
// each of which launches a browser.
func DefaultEndpointConfigs(importPerHour int) []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: portal import (strictest)
		{Path: "/import", Method: "POST", Limit: importPerHour, Window: time.Hour, Burst: 2},

		// Tier 2: writes
		{Path: "/applications", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/applications/", Method: "PUT", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/applications/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},

		// Tier 3: reads use the default limit
		// Tier 4: health check is unlimited, see MatchEndpoint
	}
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
