package app

import (
	"strings"

	"github.com/charlesng35/picketer/pkg/logger"
)

// ConfigureLogging initialises the global logger with the provided level, defaulting to info.
// format selects "json" (default) or "console" output.
func ConfigureLogging(level, format string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.Init(level, strings.TrimSpace(format))
}
