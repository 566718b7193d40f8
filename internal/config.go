package internal

import (
	"fmt"
	"time"
)

// Config is read from the environment. A .env file can seed it during
// development.
type Config struct {
	Host      string `env:"HOST,default=localhost"`
	Port      int    `env:"PORT,default=8080"`
	DebugPort int    `env:"DEBUG_PORT,default=8081"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`

	SessionBufferSize int `env:"SESSION_BUFFER_SIZE,default=64"`

	RateLimitMaxRequests int           `env:"RATE_LIMIT_MAX_REQUESTS,default=100"`
	RateLimitWindow      time.Duration `env:"RATE_LIMIT_WINDOW,default=60s"`
	HTTPRatePerMinute    int           `env:"HTTP_RATE_LIMIT_PER_MINUTE,default=300"`
	MaxBodyBytes         int64         `env:"MAX_BODY_BYTES,default=1000000"`

	ModerationEnabled     bool   `env:"MODERATION_ENABLED,default=false"`
	ModerationReplacement string `env:"MODERATION_REPLACEMENT,default=*"`

	GCInterval    time.Duration `env:"GC_INTERVAL,default=5m"`
	StatsInterval time.Duration `env:"STATS_INTERVAL,default=15s"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
