package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	require.NoError(t, Init("debug", "json"))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Init("not-a-level", "console"))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(func() { Replace(nil) })
	Replace(zap.New(core))

	WithModule("rbac").Info("module test")
	Warn("warned", zap.String("k", "v"))

	entries := recorded.All()
	require.Len(t, entries, 2)
	require.Equal(t, "rbac", entries[0].ContextMap()["module"])
	require.Equal(t, "v", entries[1].ContextMap()["k"])
}
