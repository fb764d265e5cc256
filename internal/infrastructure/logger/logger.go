package logger

import (
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	otellog "go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

const defaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DefaultConfig returns a configuration suitable for development
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: defaultTimeFormat,
	}
}

// Option adds cores or options to the logger built by New
type Option func(*options)

type options struct {
	logProvider otellog.LoggerProvider
	serviceName string
}

// WithOTelBridge tees every entry into the OpenTelemetry logs pipeline
func WithOTelBridge(provider otellog.LoggerProvider, serviceName string) Option {
	return func(o *options) {
		o.logProvider = provider
		o.serviceName = serviceName
	}
}

// New creates a zap logger. Entries at or above the configured level go to
// the configured output and, with WithOTelBridge, to the OTLP exporter too.
func New(cfg *Config, opts ...Option) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = defaultTimeFormat
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	level := parseLevel(cfg.Level)
	core := zapcore.NewCore(createEncoder(cfg), createWriter(cfg.Output), level)
	if o.logProvider != nil {
		bridge := otelzap.NewCore(o.serviceName, otelzap.WithLoggerProvider(o.logProvider))
		core = zapcore.NewTee(core, levelFiltered{Core: bridge, level: level})
	}

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// NewForEnvironment creates a logger appropriate for the given environment
func NewForEnvironment(env string) (*zap.Logger, error) {
	cfg := DefaultConfig()
	if env == "production" {
		cfg.Format = "json"
	}
	return New(cfg)
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func createEncoder(cfg *Config) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(cfg.TimeFormat),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if cfg.Format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

func createWriter(output string) zapcore.WriteSyncer {
	switch strings.ToLower(output) {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout)
	case "stderr":
		return zapcore.AddSync(os.Stderr)
	default:
		file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return zapcore.AddSync(os.Stdout)
		}
		return zapcore.AddSync(file)
	}
}

// levelFiltered keeps the bridge from exporting entries below the local level
type levelFiltered struct {
	zapcore.Core
	level zapcore.Level
}

func (l levelFiltered) Enabled(lvl zapcore.Level) bool {
	return lvl >= l.level && l.Core.Enabled(lvl)
}

func (l levelFiltered) With(fields []zapcore.Field) zapcore.Core {
	return levelFiltered{Core: l.Core.With(fields), level: l.level}
}

func (l levelFiltered) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !l.Enabled(ent.Level) {
		return ce
	}
	return l.Core.Check(ent, ce)
}

// Sync flushes any buffered log entries
func Sync(logger *zap.Logger) error {
	return logger.Sync()
}
