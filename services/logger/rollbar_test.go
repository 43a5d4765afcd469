package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

func TestRollbarLogger(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	logger := NewRollbarLogger(zap.New(obsCore), core.NewTestConfig())

	actor := &user.Actor{ID: 7, Name: "Maria", Role: user.RoleTeacher}
	logger.Error("Internal Server Error", errors.New("boom"), map[string]interface{}{"path": "/v1/attendance"}, actor)
	logger.Info("server started")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	entry := entries[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "Internal Server Error", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, "/v1/attendance", fields["path"])
	assert.Equal(t, int64(7), fields["user_id"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].Context)
}
