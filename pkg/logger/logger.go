package logger

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level defines log levels.
type Level int8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	PanicLevel
	NoLevel
	Disabled
	TraceLevel Level = -1
)

func (l Level) String() string {
	switch l {
	case TraceLevel:
		return zerolog.LevelTraceValue
	case DebugLevel:
		return zerolog.LevelDebugValue
	case InfoLevel:
		return zerolog.LevelInfoValue
	case WarnLevel:
		return zerolog.LevelWarnValue
	case ErrorLevel:
		return zerolog.LevelErrorValue
	case FatalLevel:
		return zerolog.LevelFatalValue
	case PanicLevel:
		return zerolog.LevelPanicValue
	case Disabled:
		return "disabled"
	case NoLevel:
		return ""
	}
	return strconv.Itoa(int(l))
}

// Common field names of the call stack.
const (
	PeerField  = "peer"
	RoomField  = "room"
	StateField = "state"
	ModField   = "mod"
)

var pid = os.Getpid()

type Logger struct {
	logger *zerolog.Logger
}

func setLevel(isDebug bool) {
	level := zerolog.InfoLevel
	if isDebug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

// New makes a JSON logger writing into stderr.
func New(isDebug bool) *Logger {
	setLevel(isDebug)
	logger := zerolog.New(os.Stderr).With().Timestamp().Int("pid", pid).Logger()
	return &Logger{logger: &logger}
}

// NewConsole makes a human-friendly logger.
// The tag param marks every line with the name of the app (relay, peer).
func NewConsole(isDebug bool, tag string, noColor bool) *Logger {
	return NewConsoleTo(os.Stdout, isDebug, tag, noColor)
}

func NewConsoleTo(w io.Writer, isDebug bool, tag string, noColor bool) *Logger {
	setLevel(isDebug)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.0000", NoColor: noColor,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			"s",
			ModField,
			PeerField,
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{"s", ModField, PeerField},
	}
	if output.NoColor {
		output.FormatMessage = func(i any) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%v", i)
		}
	}
	logger := zerolog.New(output).With().Str("s", tag).Timestamp().Logger()
	return &Logger{logger: &logger}
}

// Nop returns a logger that drops everything, handy in tests.
func Nop() *Logger {
	l := zerolog.Nop()
	return &Logger{logger: &l}
}

func Default() *Logger { return &Logger{logger: &log.Logger} }

// GetLevel returns the current Level of l.
func (l *Logger) GetLevel() Level { return Level(l.logger.GetLevel()) }

// With creates a child logger with the field added to its context.
func (l *Logger) With() zerolog.Context { return l.logger.With() }

// Level creates a child logger with the minimum accepted level set to level.
func (l *Logger) Level(level zerolog.Level) zerolog.Logger { return l.logger.Level(level) }

// Debug starts a new message with debug level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }

// Info starts a new message with info level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Info() *zerolog.Event { return l.logger.Info() }

// Warn starts a new message with warn level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Warn() *zerolog.Event { return l.logger.Warn() }

// Error starts a new message with error level.
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }

// Fatal starts a new message with fatal level. The os.Exit(1) function
// is called by the Msg method.
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

// WithLevel starts a new message with level.
func (l *Logger) WithLevel(level zerolog.Level) *zerolog.Event { return l.logger.WithLevel(level) }

// Extend adds some additional context to the existing logger.
func (l *Logger) Extend(ctx zerolog.Context) *Logger {
	logger := ctx.Logger()
	return &Logger{logger: &logger}
}

// Wrap turns a bare zerolog logger into ours.
func Wrap(l zerolog.Logger) *Logger { return &Logger{logger: &l} }
