package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	Host              string        `env:"HOST,default=0.0.0.0"`
	Port              int           `env:"PORT,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	SessionBufferSize int           `env:"SESSION_BUFFER_SIZE,default=32"`
	MaxMessageLength  int           `env:"MAX_MESSAGE_LENGTH,default=500"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=30s"`
	GCInterval        time.Duration `env:"GC_INTERVAL,default=5m"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`

	// Hardening toggles, both off by default: the protocol as deployed
	// trusts the client-declared identity and sender.
	StrictSender bool   `env:"STRICT_SENDER,default=false"`
	JWTSecret    string `env:"JWT_SECRET"`
}

// LogLevelFromString maps the configured level name onto slog levels.
func LogLevelFromString(level string) (slog.Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}
