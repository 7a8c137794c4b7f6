package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(Replace(zap.NewNop()))

	require.NoError(t, Init("debug", "json"))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Init("warn", "console"))
	require.False(t, Logger().Core().Enabled(zap.InfoLevel))
	require.True(t, Logger().Core().Enabled(zap.WarnLevel))

	before := Logger()
	require.Error(t, Init("not-a-level", "json"))
	require.Same(t, before, Logger())
}

func TestReplaceRestoresPrevious(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	restore := Replace(zap.New(core))

	Logger().Info("captured")
	restore()
	Logger().Info("dropped")

	require.Equal(t, 1, recorded.Len())
	require.Equal(t, "captured", recorded.All()[0].Message)

	t.Cleanup(Replace(nil))
	require.NotNil(t, Logger())
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(Replace(zap.New(core)))

	WithModule("invitations").Info("issued")

	entries := recorded.All()
	require.Len(t, entries, 1)
	require.Equal(t, "invitations", entries[0].ContextMap()["module"])
}
