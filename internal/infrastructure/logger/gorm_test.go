package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGorm(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGorm(gormlogger.Info)

	clone, ok := gl.LogMode(gormlogger.Error).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Error, clone.level)
	assert.Equal(t, gormlogger.Info, gl.level)
}

func TestGormLogger_Trace(t *testing.T) {
	stmt := func() (string, int64) { return `SELECT * FROM "documents"`, 3 }

	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		begin   time.Time
		err     error
		wantMsg string
	}{
		{name: "query at info", level: gormlogger.Info, begin: time.Now(), wantMsg: "SQL Query"},
		{name: "query at warn is quiet", level: gormlogger.Warn, begin: time.Now()},
		{name: "error", level: gormlogger.Error, begin: time.Now(), err: errors.New("boom"), wantMsg: "SQL Error"},
		{name: "record not found ignored", level: gormlogger.Info, begin: time.Now(), err: gormlogger.ErrRecordNotFound},
		{name: "slow", level: gormlogger.Warn, begin: time.Now().Add(-time.Second), wantMsg: "Slow SQL"},
		{name: "silent", level: gormlogger.Silent, begin: time.Now(), err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl, recorded := newObservedGorm(tt.level)
			gl.Trace(context.Background(), tt.begin, stmt, tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, recorded.Len())
				return
			}
			require.Equal(t, 1, recorded.Len())
			assert.Equal(t, tt.wantMsg, recorded.All()[0].Message)
		})
	}
}

func TestGormLogger_TraceCarriesRequestScope(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Info)
	ctx := WithTenantID(WithRequestID(context.Background(), "req-9"), "acme")

	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "acme", fields["tenant_id"])
}

func TestGormLogger_ParamsFilter(t *testing.T) {
	quiet, _ := newObservedGorm(gormlogger.Info)
	_, params := quiet.ParamsFilter(context.Background(), "SELECT ?", "secret")
	assert.Nil(t, params)

	full, _ := newObservedGorm(gormlogger.Info, WithFullSQL(true))
	_, params = full.ParamsFilter(context.Background(), "SELECT ?", "secret")
	assert.Equal(t, []any{"secret"}, params)
}

func TestGormLogger_Messages(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Warn)

	gl.Info(context.Background(), "info %d", 1)
	gl.Warn(context.Background(), "warn %d", 2)
	gl.Error(context.Background(), "error %d", 3)

	var msgs []string
	for _, e := range recorded.All() {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{"warn 2", "error 3"}, msgs)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
