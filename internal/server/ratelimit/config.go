package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// NewConfig builds the limiter configuration with perMinute as the default per-client limit.
func NewConfig(perMinute int, whitelist, blacklist string) *Config {
	return &Config{
		Enabled:         perMinute > 0,
		DefaultLimit:    perMinute,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       parseIPList(whitelist),
		Blacklist:       parseIPList(blacklist),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Sweeps lock up to a full batch of rows
		{Path: "/sweeps", Method: "POST", Limit: 6, Window: time.Minute, Burst: 2},
		{Path: "/auth/token", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},

		// Write operations
		{Path: "/contacts", Method: "POST", Limit: 300, Window: time.Minute, Burst: 30},
		{Path: "/sequences", Method: "POST", Limit: 300, Window: time.Minute, Burst: 30},
		{Path: "/sequences/", Method: "POST", Limit: 300, Window: time.Minute, Burst: 30},
		{Path: "/steps/", Method: "POST", Limit: 600, Window: time.Minute, Burst: 60},
		{Path: "/prospects/", Method: "PUT", Limit: 600, Window: time.Minute, Burst: 60},
	}
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	if list == "" {
		return result
	}

	for _, ip := range strings.Split(list, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}

	return result
}
