package cmd

import (
	"bytes"
	"context"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "readme-footer", rootCmd.Use)

	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range []string{"update", "list", "preview"} {
		assert.True(t, names[name], "%s command not found in root command", name)
	}

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("debug"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestRootCommandHelp(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"--help"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	output := buf.String()
	for _, expected := range []string{"readme-footer", "update", "list", "preview", "--debug", "--config"} {
		assert.Contains(t, output, expected)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, false)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	logger = newLogger(&buf, true)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	logger.Debug().Str("repository", "acme/widgets").Msg("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "acme/widgets")

	ctx := logger.WithContext(context.Background())
	assert.Equal(t, zerolog.DebugLevel, zerolog.Ctx(ctx).GetLevel())
}

func TestInterruptContext(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("interrupt cannot be sent to the own process on windows")
	}

	ctx, stop := interruptContext(context.Background())
	defer stop()

	process, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, process.Signal(os.Interrupt))

	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("interrupt did not cancel the context")
	}
}

func TestInterruptContext_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := interruptContext(parent)
	defer stop()

	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
