// Package logger provides the structured logger used across pexm.
// It wraps zap with two extra levels, SUCCESS and FAIL, renders a compact
// colored line on the console and writes JSON to a rotated file when asked.
//
//	opts := logger.DefaultOptions()
//	opts.FileOutput = true
//	opts.LogFilePath = "pexm.log"
//	logger.Init(opts)
//	defer logger.SyncGlobal()
//
//	logger.Info("installing %s", version)
//	logger.Get().With("stage", "preflight").Success("hostnames verified")
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level defines the log level.
// SuccessLevel and FailLevel are pexm levels; the console encoder renders
// them distinctively while zap sees them as Info and Fatal.
type Level int8

const (
	DebugLevel Level = iota - 1
	InfoLevel
	SuccessLevel
	WarnLevel
	ErrorLevel
	// FailLevel logs and then exits the process with status 1.
	FailLevel
)

// String returns a lowercase representation of the Level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case SuccessLevel:
		return "success"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FailLevel:
		return "fail"
	default:
		return fmt.Sprintf("level(%d)", l)
	}
}

// CapitalString returns an uppercase representation of the Level.
func (l Level) CapitalString() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case SuccessLevel:
		return "SUCCESS"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FailLevel:
		return "FAIL"
	default:
		return fmt.Sprintf("LEVEL(%d)", l)
	}
}

// ToZapLevel converts a Level to the zapcore level it is emitted at.
func (l Level) ToZapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel, SuccessLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FailLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps a textual level (as found in flags or config) to a Level.
func ParseLevel(s string) (Level, error) {
	for _, l := range []Level{DebugLevel, InfoLevel, SuccessLevel, WarnLevel, ErrorLevel, FailLevel} {
		if l.String() == s || l.CapitalString() == s {
			return l, nil
		}
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// Options holds configuration for the logger.
type Options struct {
	ConsoleLevel    Level
	FileLevel       Level
	ConsoleOutput   bool
	FileOutput      bool
	ColorConsole    bool
	TimestampFormat string

	// LogFilePath is required when FileOutput is set. The file is rotated
	// once it grows past MaxSizeMB; MaxBackups old files are kept.
	LogFilePath string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

// DefaultOptions logs INFO and above to a colored console. File output is
// off so nothing is created on disk unless the caller opts in.
func DefaultOptions() Options {
	return Options{
		ConsoleLevel:    InfoLevel,
		FileLevel:       DebugLevel,
		ConsoleOutput:   true,
		FileOutput:      false,
		ColorConsole:    true,
		TimestampFormat: time.RFC3339,
		LogFilePath:     "pexm.log",
		MaxSizeMB:       50,
		MaxBackups:      5,
		MaxAgeDays:      28,
	}
}

// Logger wraps a zap.SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
	opts Options
}

var (
	globalLogger *Logger
	once         sync.Once
)

// Init configures the global logger. Only the first call has an effect.
// If the options are unusable a plain development logger is installed so
// that logging keeps working.
func Init(opts Options) {
	once.Do(func() {
		var err error
		globalLogger, err = NewLogger(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize global logger: %v. Falling back to basic console logging.\n", err)
			cfg := zap.NewDevelopmentConfig()
			l, _ := cfg.Build(zap.AddCallerSkip(1))
			globalLogger = &Logger{SugaredLogger: l.Sugar(), opts: DefaultOptions()}
		}
	})
}

// Get returns the global logger, initializing it with DefaultOptions if
// Init was never called.
func Get() *Logger {
	if globalLogger == nil {
		Init(DefaultOptions())
	}
	return globalLogger
}

// NewLogger builds a logger writing to stdout and/or the rotated log file.
func NewLogger(opts Options) (*Logger, error) {
	return newLogger(opts, os.Stdout)
}

// NewLoggerWithWriter builds a logger whose console output goes to w.
func NewLoggerWithWriter(opts Options, w io.Writer) (*Logger, error) {
	return newLogger(opts, w)
}

func newLogger(opts Options, consoleSink io.Writer) (*Logger, error) {
	if opts.TimestampFormat == "" {
		opts.TimestampFormat = time.RFC3339
	}
	var cores []zapcore.Core

	if opts.ConsoleOutput {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(opts.TimestampFormat)
		encCfg.TimeKey = "time"
		// the console encoder renders its own level prefix
		encCfg.LevelKey = ""
		encCfg.CallerKey = ""
		cores = append(cores, zapcore.NewCore(
			newConsoleEncoder(encCfg, opts),
			zapcore.Lock(zapcore.AddSync(consoleSink)),
			levelEnabler(opts.ConsoleLevel),
		))
	}

	if opts.FileOutput {
		if opts.LogFilePath == "" {
			return nil, fmt.Errorf("log file path cannot be empty when file output is enabled")
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(opts.TimestampFormat)
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		rotator := &lumberjack.Logger{
			Filename:   opts.LogFilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(rotator),
			levelEnabler(opts.FileLevel),
		))
	}

	if len(cores) == 0 {
		return &Logger{SugaredLogger: zap.NewNop().Sugar(), opts: opts}, nil
	}

	zl := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{SugaredLogger: zl.Sugar(), opts: opts}, nil
}

func levelEnabler(min Level) zap.LevelEnablerFunc {
	return func(lvl zapcore.Level) bool {
		return lvl >= min.ToZapLevel()
	}
}

func (l *Logger) log(level Level, template string, args ...interface{}) {
	if l == nil || l.SugaredLogger == nil {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", level.CapitalString(), fmt.Sprintf(template, args...))
		if level == FailLevel {
			os.Exit(1)
		}
		return
	}

	msg := fmt.Sprintf(template, args...)
	s := l.SugaredLogger.WithOptions(zap.AddCallerSkip(1))
	lf := zap.String(customLevelKey, level.CapitalString())

	switch level {
	case DebugLevel:
		s.Debugw(msg, lf)
	case InfoLevel, SuccessLevel:
		s.Infow(msg, lf)
	case WarnLevel:
		s.Warnw(msg, lf)
	case ErrorLevel:
		s.Errorw(msg, lf)
	case FailLevel:
		s.Fatalw(msg, lf)
	default:
		s.Infow(msg, lf)
	}
}

func (l *Logger) Debugf(template string, args ...interface{}) { l.log(DebugLevel, template, args...) }
func (l *Logger) Infof(template string, args ...interface{})  { l.log(InfoLevel, template, args...) }
func (l *Logger) Successf(template string, args ...interface{}) {
	l.log(SuccessLevel, template, args...)
}
func (l *Logger) Warnf(template string, args ...interface{})  { l.log(WarnLevel, template, args...) }
func (l *Logger) Errorf(template string, args ...interface{}) { l.log(ErrorLevel, template, args...) }

// Failf logs at FailLevel and exits the process.
func (l *Logger) Failf(template string, args ...interface{}) { l.log(FailLevel, template, args...) }

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil || l.SugaredLogger == nil {
		return nil
	}
	return l.SugaredLogger.Sync()
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...), opts: l.opts}
}

func Debug(template string, args ...interface{})   { Get().log(DebugLevel, template, args...) }
func Info(template string, args ...interface{})    { Get().log(InfoLevel, template, args...) }
func Success(template string, args ...interface{}) { Get().log(SuccessLevel, template, args...) }
func Warn(template string, args ...interface{})    { Get().log(WarnLevel, template, args...) }
func Error(template string, args ...interface{})   { Get().log(ErrorLevel, template, args...) }
func Fail(template string, args ...interface{})    { Get().log(FailLevel, template, args...) }

// SyncGlobal flushes the global logger.
func SyncGlobal() error {
	return Get().Sync()
}
