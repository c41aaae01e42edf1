package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "orisa", configBaseName)
	assert.Equal(t, "orisa.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "ORISA", envPrefix)
	assert.Equal(t, "dispatcher.addr", dispatcherAddrKey)
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, currentConfigVersion, viper.GetInt(configVersionKey))
	assert.Equal(t, 5, viper.GetInt(dispatcherReadyAttemptsKey))
	assert.Equal(t, 100*time.Millisecond, viper.GetDuration(dispatcherReadyDelayKey))
	assert.Equal(t, "pytest", viper.GetString(runnerCommandKey))
	assert.Equal(t, []string{"--enable-orisa"}, viper.GetStringSlice(runnerRunArgsKey))
	assert.Equal(t, []string{"--collect-only", "-q", "--enable-orisa"}, viper.GetStringSlice(runnerCollectArgsKey))
	assert.Equal(t, ".", viper.GetString(runnerWorkDirKey))
	assert.Empty(t, viper.GetString(metricsAddrKey))
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("ORISA_RUNNER_WORKDIR", "/srv/project")
	t.Setenv("ORISA_LOG_MAX_AGE", "7")

	assert.Equal(t, "/srv/project", viper.GetString(runnerWorkDirKey))
	assert.Equal(t, 7, viper.GetInt(logMaxAgeKey))
}

func TestRunnerConfig(t *testing.T) {
	config := runnerConfig([]string{"ORISA_DISPATCHER_ADDR=127.0.0.1:1"})

	assert.Equal(t, "pytest", config.Command)
	assert.Equal(t, []string{"--enable-orisa"}, config.RunArgs)
	assert.Equal(t, []string{"ORISA_DISPATCHER_ADDR=127.0.0.1:1"}, config.Env)
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelWarn))
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	path := filepath.Join(t.TempDir(), "orisa.log")

	configureLogger(path, false)
	require.NotNil(t, globalLogger)
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))

	slog.Info("Logger configured")
	assert.FileExists(t, path)

	configureLogger(path, true)
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
}
