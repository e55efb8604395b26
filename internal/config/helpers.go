package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"
)

var offsetTimezonePattern = regexp.MustCompile(`^([+-])(\d{2}):(\d{2})$`)

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.HTTPPort))
}

// GetGRPCAddress returns the gRPC listen address
func (c *Config) GetGRPCAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.GRPCPort))
}

// GetLocation returns the configured engine location.
// Returns UTC if not configured or invalid. Supports formats:
//   - IANA timezone names: "Asia/Tokyo", "America/New_York", "UTC"
//   - Offset format: "+09:00", "-05:00", "+00:00"
func (c *EngineConfig) GetLocation() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := ParseLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseLocation parses an IANA timezone name or a "+09:00" style offset.
func ParseLocation(name string) (*time.Location, error) {
	// Try parsing as IANA timezone name first
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	return parseOffsetTimezone(name)
}

// parseOffsetTimezone parses timezone offset format like "+09:00", "-05:00"
func parseOffsetTimezone(offset string) (*time.Location, error) {
	matches := offsetTimezonePattern.FindStringSubmatch(offset)
	if len(matches) != 4 {
		return nil, fmt.Errorf("invalid timezone: %s", offset)
	}

	sign := 1
	if matches[1] == "-" {
		sign = -1
	}

	hours, err := strconv.Atoi(matches[2])
	if err != nil {
		return nil, fmt.Errorf("invalid hours: %s", matches[2])
	}

	minutes, err := strconv.Atoi(matches[3])
	if err != nil {
		return nil, fmt.Errorf("invalid minutes: %s", matches[3])
	}

	offsetSeconds := sign * (hours*3600 + minutes*60)
	return time.FixedZone(offset, offsetSeconds), nil
}
