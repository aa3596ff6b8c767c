package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Fields carries structured context for a log line.
type Fields map[string]interface{}

var (
	mu     sync.RWMutex
	output io.Writer = os.Stdout
	level            = zerolog.InfoLevel
)

// Configure sets the process-wide output and minimum level.
// Unknown levels fall back to info.
func Configure(w io.Writer, lvl string) {
	mu.Lock()
	defer mu.Unlock()

	if w != nil {
		output = w
	}
	parsed, err := zerolog.ParseLevel(lvl)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	level = parsed
}

// LoggerV2 is a structured logger scoped to a component.
type LoggerV2 struct {
	zl zerolog.Logger
}

// NewLoggerV2 creates a structured logger tagged with the component name.
func NewLoggerV2(component string) *LoggerV2 {
	mu.RLock()
	w, lvl := output, level
	mu.RUnlock()

	return &LoggerV2{
		zl: zerolog.New(w).Level(lvl).With().Timestamp().Str("component", component).Logger(),
	}
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *LoggerV2 {
	return &LoggerV2{zl: zerolog.Nop()}
}

func (l *LoggerV2) Debug(msg string, fields ...Fields) {
	l.write(l.zl.Debug(), msg, fields)
}

func (l *LoggerV2) Info(msg string, fields ...Fields) {
	l.write(l.zl.Info(), msg, fields)
}

func (l *LoggerV2) Warn(msg string, fields ...Fields) {
	l.write(l.zl.Warn(), msg, fields)
}

func (l *LoggerV2) Error(msg string, fields ...Fields) {
	l.write(l.zl.Error(), msg, fields)
}

// Fatal logs and exits the process.
func (l *LoggerV2) Fatal(msg string, fields ...Fields) {
	l.write(l.zl.Fatal(), msg, fields)
}

// With returns a child logger that always carries the given fields.
func (l *LoggerV2) With(fields Fields) *LoggerV2 {
	return &LoggerV2{zl: l.zl.With().Fields(map[string]interface{}(fields)).Logger()}
}

func (l *LoggerV2) write(ev *zerolog.Event, msg string, fields []Fields) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		ev = ev.Fields(map[string]interface{}(f))
	}
	ev.Msg(msg)
}

var (
	defaultOnce   sync.Once
	defaultLogger *LoggerV2
)

func std() *LoggerV2 {
	defaultOnce.Do(func() {
		defaultLogger = NewLoggerV2("storefront-service")
	})
	return defaultLogger
}

// Info logs through the process-wide logger.
func Info(msg string, fields ...Fields) {
	std().Info(msg, fields...)
}

// Infof logs a formatted message through the process-wide logger.
// Prefer the structured methods on LoggerV2.
func Infof(format string, args ...interface{}) {
	std().zl.Info().Msgf(format, args...)
}
