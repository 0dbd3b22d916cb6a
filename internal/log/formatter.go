package log

import (
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// consoleFormatter builds the colorized console formatter used in
// non-production mode (SPEC_FULL.md §2.1).
func consoleFormatter(colors bool) logrus.Formatter {
	return &prefixed.TextFormatter{
		DisableColors:   !colors,
		ForceColors:     colors,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
}

// fileFormatter is the structured formatter written to the rotating
// log file: plain, parseable, no ANSI color codes.
func fileFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
}
