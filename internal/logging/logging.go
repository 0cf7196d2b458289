// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/gelf"
)

const service = "sponsordocs"

type Options struct {
	Level    string
	Format   string // "json" or "console"
	GelfAddr string
}

// New returns the root logger plus a closer for any network sink it opened.
// A GELF failure is reported on the returned logger, not as an error.
func New(opts Options, stderr io.Writer) (zerolog.Logger, func() error) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = stderr
	if opts.Format == "console" {
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	}

	closer := func() error { return nil }
	var gelfErr error
	if opts.GelfAddr != "" {
		gw, err := gelf.New(opts.GelfAddr, service)
		if err != nil {
			gelfErr = err
		} else {
			out = zerolog.MultiLevelWriter(out, gw)
			closer = gw.Close
		}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Str("service", service).Logger()
	if gelfErr != nil {
		logger.Warn().Err(gelfErr).Str("addr", opts.GelfAddr).Msg("GELF init failed")
	} else if opts.GelfAddr != "" {
		logger.Info().Str("addr", opts.GelfAddr).Msg("GELF logging enabled")
	}
	return logger, closer
}
