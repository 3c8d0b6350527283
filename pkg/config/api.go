package config

import (
	"fmt"
	"strings"
)

// APIConfig holds REST API behaviour toggles.
type APIConfig struct {
	// HideErrorDetail replaces store failure details in 500 responses with a generic message.
	HideErrorDetail bool `koanf:"hideErrorDetail"`
}

// String returns a string representation of the API configuration.
func (c *APIConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- API ---\n")
	b.WriteString(fmt.Sprintf("  hideErrorDetail: %t\n", c.HideErrorDetail))
	return b.String()
}

func (c *APIConfig) Validate() error {
	return nil
}
