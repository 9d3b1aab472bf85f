// Package logging provides leveled component loggers for the artex CLI.
//
// Verbosity is configured once at startup from the --log-level flag:
//
//	if err := logging.Init("debug"); err != nil { ... }
//	logger := logging.Get("executor")
//	logger.Info("cache miss", "action", id)
package logging

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned when an unsupported log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level string into a charmbracelet/log level.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

var (
	mu      sync.Mutex
	level   = log.InfoLevel
	loggers = make(map[string]*log.Logger)
)

// Init sets the global level for all component loggers, including ones that
// were handed out before Init was called.
func Init(levelName string) error {
	parsed, err := ParseLevel(levelName)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	level = parsed
	for _, logger := range loggers {
		logger.SetLevel(parsed)
	}
	return nil
}

// Get returns the logger for a component, creating it on first use.
// Loggers write to stderr so they never mix with command output on stdout.
func Get(component string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if logger, ok := loggers[component]; ok {
		return logger
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: false,
		Prefix:          component,
	})
	loggers[component] = logger
	return logger
}
