package websocket

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the narrow logging capability this package needs: one levelled,
// printf-style call per diagnostic event (control frames, protocol
// violations, handshake and transport failures). The default, DefaultLogger,
// wraps a zerolog.Logger writing to os.Stderr; an embedding application can
// override it per connection with WithLogger, or globally by assigning to
// DefaultLogger before calling NewConn (each Conn keeps the logger it was
// constructed with).
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type zerologLogger struct {
	l zerolog.Logger
}

func (z zerologLogger) Debugf(format string, args ...interface{}) {
	z.l.Debug().Msgf(format, args...)
}

func (z zerologLogger) Infof(format string, args ...interface{}) {
	z.l.Info().Msgf(format, args...)
}

func (z zerologLogger) Warnf(format string, args ...interface{}) {
	z.l.Warn().Msgf(format, args...)
}

func (z zerologLogger) Errorf(format string, args ...interface{}) {
	z.l.Error().Msgf(format, args...)
}

// NewZerologLogger wraps an existing zerolog.Logger as a Logger.
func NewZerologLogger(l zerolog.Logger) Logger {
	return zerologLogger{l: l}
}

// DefaultLogger is used by connections that don't pass WithLogger. It writes
// structured, leveled events to os.Stderr with the component field set to
// "websocket", same component tagging the teacher's ambient logging used for
// its own subsystems.
var DefaultLogger Logger = NewZerologLogger(zerolog.New(os.Stderr).With().
	Timestamp().Str("component", "websocket").Logger())
