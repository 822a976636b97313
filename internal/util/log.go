package util

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Printf-style wrappers kept for hot paths; everything else should use
// zerolog's fluent API directly.

func LogInfo(format string, v ...any) {
	log.Info().Msg(fmt.Sprintf(format, v...))
}

func LogWarn(format string, v ...any) {
	log.Warn().Msg(fmt.Sprintf(format, v...))
}

func LogError(format string, v ...any) {
	log.Error().Msg(fmt.Sprintf(format, v...))
}

func LogFatal(format string, v ...any) {
	log.Fatal().Msg(fmt.Sprintf(format, v...))
}

func FormatUptime(d time.Duration) string {
	seconds := int(d.Seconds()) % 60
	minutes := int(d.Minutes()) % 60
	hours := int(d.Hours())
	switch {
	case hours > 0:
		return fmt.Sprintf("%d hour%s, %d minute%s, %d second%s",
			hours, plural(hours),
			minutes, plural(minutes),
			seconds, plural(seconds))
	case minutes > 0:
		return fmt.Sprintf("%d minute%s, %d second%s",
			minutes, plural(minutes),
			seconds, plural(seconds))
	default:
		return fmt.Sprintf("%d second%s", seconds, plural(seconds))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
