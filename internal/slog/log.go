package slog

import (
	"io"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	SOURCE_FIELD_NAME = "src"
	LIST_FIELD_NAME   = "list"

	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	TraceLevel = zerolog.TraceLevel
)

func init() {
	//configure zerolog fields

	zerolog.DurationFieldInteger = false
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.MessageFieldName = "msg"
	zerolog.LevelFieldName = "lvl"
	zerolog.TimestampFieldName = "tm"
}

// ChildLoggerForSource returns a copy of logger with the src field set to src.
func ChildLoggerForSource(logger zerolog.Logger, src string) zerolog.Logger {
	return logger.With().Str(SOURCE_FIELD_NAME, src).Logger()
}

// ChildLoggerForSourceWithLevels does the same as ChildLoggerForSource, if levels is not nil the returned logger
// has the level configured for src.
func ChildLoggerForSourceWithLevels(logger zerolog.Logger, src string, levels *Levels) zerolog.Logger {
	if levels != nil {
		logger = logger.Level(levels.LevelFor(src))
	}
	return ChildLoggerForSource(logger, src)
}

// ChildLoggerForInternalSource does the same as ChildLoggerForSource but the returned logger
// has a minimum level of 'info' if internal debug logs are disabled.
func ChildLoggerForInternalSource(logger zerolog.Logger, src string, levels *Levels) zerolog.Logger {
	level := levels.LevelFor(src)

	if !levels.AreInternalDebugLogsEnabled() && level < zerolog.InfoLevel {
		//if internal debug logs are disable we set 'info' as the minimum level for the logger.
		level = zerolog.InfoLevel
	}
	return ChildLoggerForSource(logger.Level(level), src)
}

// NewConsoleLogger returns a human-friendly logger writing to w.
func NewConsoleLogger(w io.Writer, colorize bool, level zerolog.Level) zerolog.Logger {
	writer := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !colorize,
		TimeFormat: time.TimeOnly,
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

type Levels struct {
	lock          sync.Mutex
	defaultLevel  zerolog.Level
	levelBySource map[string]zerolog.Level
	internalDebug bool
}

type LevelsInitialization struct {
	DefaultLevel            zerolog.Level
	BySource                map[string]zerolog.Level //can be nil
	EnableInternalDebugLogs bool
}

func NewLevels(init LevelsInitialization) *Levels {
	bySource := map[string]zerolog.Level{}
	if init.BySource != nil {
		bySource = maps.Clone(init.BySource)
	}

	return &Levels{
		defaultLevel:  init.DefaultLevel,
		levelBySource: bySource,
		internalDebug: init.EnableInternalDebugLogs,
	}
}

func (l *Levels) LevelFor(src string) zerolog.Level {
	l.lock.Lock()
	defer l.lock.Unlock()

	level, ok := l.levelBySource[src]
	if ok {
		return level
	}
	return l.defaultLevel
}

func (l *Levels) DefaultLevel() zerolog.Level {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.defaultLevel
}

func (l *Levels) AreInternalDebugLogsEnabled() bool {
	if l == nil {
		return false
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	return l.internalDebug
}
