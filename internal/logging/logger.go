package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/searchvault/internal/config"
)

// NewLogger creates a structured zerolog.Logger for the given component.
// SERVICE_NAME overrides the component name in the "service" field.
func NewLogger(cfg *config.Config, component string) zerolog.Logger {
	service := cfg.ServiceName
	if service == "" {
		service = component
	}

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
