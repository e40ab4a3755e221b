package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultRequestTimeout bounds both connect and read for a single API call.
const DefaultRequestTimeout = 40 * time.Second

// DefaultFallback3DSVersion is the 3-D Secure major version assumed when the
// bank omits or returns an unrecognized version string. Terminals that only
// speak 1.x must override this.
const DefaultFallback3DSVersion = "2"

// ClientConfig carries everything a payment client needs to talk to the
// acquiring API. It is immutable for the lifetime of a client; there is no
// process-wide mutable configuration.
type ClientConfig struct {
	// TerminalKey identifies the merchant terminal. Required.
	TerminalKey string
	// Password is the shared secret used for request token computation.
	// Required for every signed operation.
	Password string
	// PublicKey is handed to the caller-supplied CardSource when card data
	// has to be encoded for transport.
	PublicKey string
	// DeveloperMode routes requests to the bank's test hosts.
	DeveloperMode bool
	// CustomAPIURL, when set, replaces the debug host. It is used verbatim
	// if it already ends in the API version segment, otherwise the segment
	// is appended.
	CustomAPIURL string
	// Fallback3DSVersion is used when a Check3dsVersion response carries no
	// recognizable version string.
	Fallback3DSVersion string
	// RequestTimeout bounds one HTTP exchange end to end.
	RequestTimeout time.Duration
}

// Normalized returns a copy of the config with defaults filled in.
func (c ClientConfig) Normalized() ClientConfig {
	if c.Fallback3DSVersion == "" {
		c.Fallback3DSVersion = DefaultFallback3DSVersion
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

// Load reads a ClientConfig from the environment. A .env file in the working
// directory is honored when present.
func Load() *ClientConfig {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := ClientConfig{
		TerminalKey:        os.Getenv("ACQ_TERMINAL_KEY"),
		Password:           os.Getenv("ACQ_PASSWORD"),
		PublicKey:          os.Getenv("ACQ_PUBLIC_KEY"),
		DeveloperMode:      parseBool(os.Getenv("ACQ_DEVELOPER_MODE")),
		CustomAPIURL:       os.Getenv("ACQ_CUSTOM_API_URL"),
		Fallback3DSVersion: os.Getenv("ACQ_FALLBACK_3DS_VERSION"),
	}

	if cfg.TerminalKey == "" {
		log.Printf("Warning: ACQ_TERMINAL_KEY not set")
	}
	if cfg.Password == "" {
		log.Printf("Warning: ACQ_PASSWORD not set")
	}

	cfg = cfg.Normalized()
	return &cfg
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
