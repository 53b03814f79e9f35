package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AllowedOrigin        string        `env:"ALLOWED_ORIGIN,default=*"`
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	MaxFrameSize         int64         `env:"MAX_FRAME_SIZE,default=4096"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	SearchPageSize       int           `env:"SEARCH_PAGE_SIZE,default=20"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	StatsInterval        time.Duration `env:"STATS_INTERVAL,default=30s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	DebugPort            int           `env:"DEBUG_PORT,default=8081"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
