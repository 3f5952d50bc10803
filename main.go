package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"

	"github.com/vinhphatfsg/rulemorph/cmd"
	"github.com/vinhphatfsg/rulemorph/constants"
	"github.com/vinhphatfsg/rulemorph/version"
)

var appVersion = resolveVersion()

// resolveVersion prefers the module version embedded by `go build` in
// VCS-aware builds; it falls back to a fixed string for `go run` and other
// builds where debug.ReadBuildInfo has no module version to report.
func resolveVersion() string {
	if v := version.GetVersionInfo().GitVersion; v != "" {
		return v
	}
	return "0.1.0"
}

func main() {
	ctx := context.Background()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, os.Kill)
	defer stop()

	exitCode := 0

	logger := setupDefaultLogger()
	slog.SetDefault(logger)

	cli := cmd.Setup(ctx, appVersion)
	if err := cmd.Execute(ctx, cli, os.Args); err != nil {
		fmt.Printf("Error: %s\n", err)
		exitCode = 1
	}
	os.Exit(exitCode)
}

func setupDefaultLogger() *slog.Logger {
	logLevel := slog.LevelVar{}
	if _, ok := os.LookupEnv(constants.EnvDebug); ok {
		os.Setenv(constants.EnvLogLevel, "DEBUG")
	}
	switch strings.ToUpper(os.Getenv(constants.EnvLogLevel)) {
	case "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "INFO":
		logLevel.Set(slog.LevelInfo)
	case "WARN":
		logLevel.Set(slog.LevelWarn)
	case "ERROR":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}

	attrs := []slog.Attr{
		slog.String("app", constants.APPNAME),
		slog.String("version", appVersion),
		slog.String("instance", uuid.NewString()),
	}
	if _, ok := os.LookupEnv(constants.EnvDebug); ok {
		attrs = append(attrs,
			slog.Bool("debug", true),
			slog.Any("args", os.Args),
		)
		if exec, err := os.Executable(); err == nil {
			attrs = append(attrs, slog.String("executable", exec))
		}
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     &logLevel,
	}).WithAttrs(attrs)

	return slog.New(logHandler)
}
