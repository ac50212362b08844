// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

var initOnce sync.Once

// ParseLevel accepts trace, debug, info, warn and error in any case.
func ParseLevel(name string) (log.Level, error) {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}

	switch lvl {
	case log.TraceLevel, log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel:
		return lvl, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: use trace, debug, info, warn or error", name)
	}
}

// Init sets up the standard logger once. Later calls are no-ops so the level
// stays fixed for the whole run.
func Init(level log.Level) {
	InitWithOutput(level, os.Stderr)
}

func InitWithOutput(level log.Level, out io.Writer) {
	initOnce.Do(func() {
		log.SetOutput(out)
		log.SetLevel(level)
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05Z07:00",
		})
	})
}
