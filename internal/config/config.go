// Package config defines the configuration of the product service.
package config

import (
	"strings"

	"github.com/abgdnv/catalog/pkg/config"
	"github.com/abgdnv/catalog/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	NATS       config.NATSConfig       `koanf:"nats"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
	API        config.APIConfig        `koanf:"api"`
}

// String returns the whole configuration with credentials masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.API.String())
	b.WriteString(c.NATS.String())
	b.WriteString(c.Resilience.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Database,
		&c.Log,
		&c.PProf,
		&c.Shutdown,
		&c.GRPC,
		&c.NATS,
		&c.Telemetry,
		&c.API,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	// the breaker only guards event publishing
	if c.NATS.Enabled {
		if err := c.Resilience.Validate(); err != nil {
			return err
		}
	}
	return nil
}
