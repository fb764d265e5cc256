package logger

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "nil config", cfg: nil},
		{name: "default config", cfg: DefaultConfig()},
		{name: "json to stderr", cfg: &Config{Level: "warn", Format: "json", Output: "stderr"}},
		{name: "empty time format", cfg: &Config{Level: "debug", Format: "console", Output: "stdout"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production", "test"} {
		l, err := NewForEnvironment(env)
		require.NoError(t, err, env)
		assert.NotNil(t, l)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.Debug("Hidden")
	l.Info("Feed subscribed")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Feed subscribed"`)
	assert.NotContains(t, string(data), "Hidden")
}

type captureExporter struct {
	mu   sync.Mutex
	msgs []string
}

func (e *captureExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.msgs = append(e.msgs, r.Body().AsString())
	}
	return nil
}

func (e *captureExporter) Shutdown(context.Context) error   { return nil }
func (e *captureExporter) ForceFlush(context.Context) error { return nil }

func (e *captureExporter) messages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.msgs...)
}

func TestNew_WithOTelBridge(t *testing.T) {
	exp := &captureExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	l, err := New(&Config{Level: "warn", Format: "json", Output: filepath.Join(t.TempDir(), "x.log")},
		WithOTelBridge(provider, "bizops-test"))
	require.NoError(t, err)

	l.Info("Below threshold")
	l.Warn("Feed failed")

	assert.Equal(t, []string{"Feed failed"}, exp.messages())
}

func TestCreateWriter(t *testing.T) {
	assert.NotNil(t, createWriter("stdout"))
	assert.NotNil(t, createWriter("stderr"))
	assert.NotNil(t, createWriter(""))
	// unwritable paths fall back to stdout
	assert.NotNil(t, createWriter(filepath.Join(t.TempDir(), "missing", "dir", "x.log")))
}

func TestSync(t *testing.T) {
	l, err := New(&Config{Level: "info", Format: "json", Output: filepath.Join(t.TempDir(), "s.log")})
	require.NoError(t, err)
	assert.NoError(t, Sync(l))
}
