package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "orisa"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	hostFlagName    = "host"
	portFlagName    = "port"
	verboseFlagName = "verbose"
	commandFlagName = "runner"
	metricsFlagName = "metrics-addr"

	dispatcherHostKey          = "dispatcher.host"
	dispatcherPortKey          = "dispatcher.port"
	dispatcherAddrKey          = "dispatcher.addr"
	dispatcherReadyAttemptsKey = "dispatcher.ready_attempts"
	dispatcherReadyDelayKey    = "dispatcher.ready_delay"

	runnerCommandKey       = "runner.command"
	runnerRunArgsKey       = "runner.run_args"
	runnerCollectArgsKey   = "runner.collect_args"
	runnerWorkDirKey       = "runner.workdir"
	runnerReportTimeoutKey = "runner.report_timeout"

	flagsFileKey   = "flags.file"
	historyDirKey  = "history.dir"
	metricsAddrKey = "metrics.addr"

	defaultDispatcherHost          = "127.0.0.1"
	defaultDispatcherPort          = 1337
	defaultDispatcherReadyAttempts = 5
	defaultDispatcherReadyDelay    = 100 * time.Millisecond

	defaultRunnerCommand       = "pytest"
	defaultRunnerWorkDir       = "."
	defaultRunnerReportTimeout = 2 * time.Second

	defaultFlagsFile = ".orisa-flags.yaml"

	envPrefix = "ORISA"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".orisa.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var (
	defaultRunnerRunArgs     = []string{"--enable-orisa"}
	defaultRunnerCollectArgs = []string{"--collect-only", "-q", "--enable-orisa"}
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func setDefaults() {
	viper.SetDefault(configVersionKey, currentConfigVersion)

	viper.SetDefault(dispatcherHostKey, defaultDispatcherHost)
	viper.SetDefault(dispatcherPortKey, defaultDispatcherPort)
	viper.SetDefault(dispatcherAddrKey, "")
	viper.SetDefault(dispatcherReadyAttemptsKey, defaultDispatcherReadyAttempts)
	viper.SetDefault(dispatcherReadyDelayKey, defaultDispatcherReadyDelay)

	viper.SetDefault(runnerCommandKey, defaultRunnerCommand)
	viper.SetDefault(runnerRunArgsKey, defaultRunnerRunArgs)
	viper.SetDefault(runnerCollectArgsKey, defaultRunnerCollectArgs)
	viper.SetDefault(runnerWorkDirKey, defaultRunnerWorkDir)
	viper.SetDefault(runnerReportTimeoutKey, defaultRunnerReportTimeout)

	viper.SetDefault(flagsFileKey, defaultFlagsFile)
	viper.SetDefault(historyDirKey, "")
	viper.SetDefault(metricsAddrKey, "")

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger points the global slog logger at the rotating log file.
// The terminal belongs to the UI, so nothing is logged to stdout.
//
// By default it logs at the configured level; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
