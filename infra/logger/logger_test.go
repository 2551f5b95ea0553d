package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMapperLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewAt(core, "payfor")

	l.Warn("unrecognized return code", map[string]any{"code": "M999"})
	l.Debug("skipping history entry", map[string]any{"index": 3})

	entries := logs.All()
	assert.Len(t, entries, 2)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "unrecognized return code", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "payfor", fields["gateway"])
	assert.Equal(t, "M999", fields["code"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, "payfor", entries[1].ContextMap()["gateway"])
}

func TestMapperLogger_LevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	l := NewAt(core, "estpos")

	l.Debug("below threshold", nil)
	l.Warn("kept", nil)

	assert.Len(t, logs.All(), 1)
	assert.Equal(t, "kept", logs.All()[0].Message)
}

func TestGlobal(t *testing.T) {
	assert.NotNil(t, Global())
	assert.NotNil(t, ForGateway("garanti"))
}
