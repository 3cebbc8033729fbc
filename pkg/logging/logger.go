package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where component loggers write and at which level.
// Configure must be called before the first NewLogger call to take effect.
type Options struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Dir overrides the log directory (~/.webvision/logs by default).
	Dir string
	// Console mirrors log entries to stderr.
	Console bool
	// MaxSizeMB is the rotation threshold of the log file.
	MaxSizeMB int
}

// Logger provides leveled logging for WebVision components.
// Entries go to a rotating JSON file shared by every component of the
// session, optionally mirrored to stderr in a human readable form.
type Logger struct {
	sessionID string
	component string
	logPath   string
	base      *zap.Logger
	sugar     *zap.SugaredLogger
	closeOnce sync.Once
}

var (
	sessionID     string
	sessionIDOnce sync.Once

	optsMu  sync.RWMutex
	options = Options{Level: "info", MaxSizeMB: 50}

	// sink is the rotating file shared by all loggers of this process
	sink     *lumberjack.Logger
	logDir   string
	initOnce sync.Once
	initErr  error
)

// Configure replaces the process wide logging options.
func Configure(o Options) {
	optsMu.Lock()
	defer optsMu.Unlock()
	if o.Level == "" {
		o.Level = "info"
	}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = 50
	}
	options = o
}

func currentOptions() Options {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return options
}

func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initSink creates the log directory and the rotating file writer once.
func initSink() error {
	initOnce.Do(func() {
		opts := currentOptions()
		dir := opts.Dir
		if dir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			dir = filepath.Join(homeDir, ".webvision", "logs")
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
		logDir = dir
		sink = &lumberjack.Logger{
			Filename:   filepath.Join(dir, fmt.Sprintf("%s-webvision.log", getSessionID())),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: 3,
			Compress:   true,
		}
	})
	return initErr
}

func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func consoleCore(level zapcore.Level) zapcore.Core {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), level)
}

// NewLogger creates a logger for a specific component.
//
// If the log directory cannot be created it returns a logger that writes to
// stderr along with the error, so callers can warn about fallback mode.
func NewLogger(component string) (*Logger, error) {
	opts := currentOptions()
	level := parseLevel(opts.Level)

	if err := initSink(); err != nil {
		return newLogger(component, "", consoleCore(level)), err
	}

	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(sink), level)

	core := fileCore
	if opts.Console {
		core = zapcore.NewTee(fileCore, consoleCore(level))
	}
	return newLogger(component, sink.Filename, core), nil
}

func newLogger(component, path string, core zapcore.Core) *Logger {
	base := zap.New(core).Named(component).With(zap.String("session", getSessionID()))
	return &Logger{
		sessionID: getSessionID(),
		component: component,
		logPath:   path,
		base:      base,
		sugar:     base.Sugar(),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	base := zap.NewNop()
	return &Logger{component: "nop", base: base, sugar: base.Sugar()}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	sugar := l.sugar.With(keysAndValues...)
	return &Logger{
		sessionID: l.sessionID,
		component: l.component,
		logPath:   l.logPath,
		base:      sugar.Desugar(),
		sugar:     sugar,
	}
}

// Zap exposes the underlying zap logger for libraries that want one.
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Printf logs a formatted message at info level.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path to the log file, empty in fallback mode.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close flushes buffered entries. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.base.Sync()
		// stderr cannot be synced when it is a terminal or pipe
		if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
			err = nil
		}
	})
	return err
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initSink(); err != nil {
		return "", err
	}
	return logDir, nil
}
