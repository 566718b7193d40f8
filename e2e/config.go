package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// SERVER_ADDR points the suite at an already running server. When empty,
	// the suite boots a full in-process server on a random port instead.
	ServerAddr string `envconfig:"SERVER_ADDR"`
	// E2E_DEBUG_FRAMES dumps every received websocket frame to the test log
	DebugFrames bool `envconfig:"E2E_DEBUG_FRAMES" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
