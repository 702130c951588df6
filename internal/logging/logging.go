// Package logging configures the process-wide zerolog logger the way the
// teacher's cmd/hg-coord/main.go does inline: a console writer for TTY
// output, switching to plain JSON when the configured format calls for it,
// plus an optional file sink. Whether stderr is a terminal is not checked.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Configure installs the global zerolog logger per the given level/format,
// optionally tee-ing output to a file in addition to stderr.
func Configure(level, format, file string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)

	var writers []io.Writer
	switch strings.ToLower(format) {
	case "", "console":
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	case "json":
		writers = append(writers, os.Stderr)
	default:
		return fmt.Errorf("logging: invalid format %q", format)
	}

	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("logging: open log file: %w", err)
		}
		writers = append(writers, f)
	}

	var out io.Writer
	if len(writers) == 1 {
		out = writers[0]
	} else {
		out = zerolog.MultiLevelWriter(writers...)
	}

	log.Logger = log.Output(out)
	return nil
}

func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("logging: invalid log level %q", level)
	}
}
