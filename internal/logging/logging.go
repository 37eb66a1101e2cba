// Package logging configures the global zerolog logger and the request log lines.
package logging

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global logger: debug or info level, console or JSON output.
func InitLogger(debug, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	setup(os.Stdout, level, human)
}

// Setup initializes the global logger from configuration strings. format is
// "human" or "json".
func Setup(level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var human bool
	switch strings.ToLower(format) {
	case "human", "console", "":
		human = true
	case "json":
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	setup(os.Stdout, lvl, human)

	return nil
}

func setup(out io.Writer, level zerolog.Level, human bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(out).With().Timestamp().Logger()
	if human {
		log.Logger = base.Output(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339Nano,
		})
	} else {
		log.Logger = base
	}
	zerolog.SetGlobalLevel(level)
}

// LogRequest logs a received command with structured fields.
func LogRequest(clientIP, command string, requestData []byte, activeConns int) {
	log.Info().
		Str("event", "request_received").
		Str("client_ip", clientIP).
		Str("command", command).
		Str("request", FormatData(requestData)).
		Int("active_connections", activeConns).
		Msg("received command")
}

// LogResponse logs a sent response with structured fields.
func LogResponse(
	clientIP string,
	command string,
	responseData []byte,
	errorCode string,
	elapsed time.Duration,
) {
	log.Info().
		Str("event", "response_sent").
		Str("client_ip", clientIP).
		Str("command", command).
		Str("response", FormatData(responseData)).
		Str("error_code", errorCode).
		Dur("elapsed", elapsed).
		Msg("sent response")
}

// FormatData returns data as text if every byte is printable ASCII, else as hex.
func FormatData(data []byte) string {
	for _, b := range data {
		if b < 32 || b > 126 {
			return hex.EncodeToString(data)
		}
	}

	return string(data)
}
