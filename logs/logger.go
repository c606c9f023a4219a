package logs

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Logger is used by writers and commands to report progress.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...any)
	Info(msg string)
	Infof(format string, args ...any)
	Warn(msg string)
	Warnf(format string, args ...any)
	Error(msg string)
	Errorf(format string, args ...any)
}

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return ""
	}
}

func LevelFromString(s string) (Level, error) {
	for _, l := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level: %q", s)
}

var _ Logger = (*Std)(nil)

// Std logs messages with level prefix to a standard library logger.
type Std struct {
	logger *log.Logger
	level  Level
}

func New(out io.Writer, level Level) *Std {
	return &Std{
		logger: log.New(out, "", log.Ldate|log.Ltime),
		level:  level,
	}
}

func (l *Std) log(level Level, message string) {
	if level < l.level {
		return
	}
	l.logger.Printf("[%s]: %s", level, message)
}

func (l *Std) Debug(msg string) { l.log(LevelDebug, msg) }

func (l *Std) Debugf(format string, args ...any) { l.log(LevelDebug, fmt.Sprintf(format, args...)) }

func (l *Std) Info(msg string) { l.log(LevelInfo, msg) }

func (l *Std) Infof(format string, args ...any) { l.log(LevelInfo, fmt.Sprintf(format, args...)) }

func (l *Std) Warn(msg string) { l.log(LevelWarn, msg) }

func (l *Std) Warnf(format string, args ...any) { l.log(LevelWarn, fmt.Sprintf(format, args...)) }

func (l *Std) Error(msg string) { l.log(LevelError, msg) }

func (l *Std) Errorf(format string, args ...any) { l.log(LevelError, fmt.Sprintf(format, args...)) }

// Nop returns a logger which discards everything.
func Nop() Logger {
	return New(io.Discard, LevelError+1)
}
