package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/service-starter/internal/application"
	"github.com/eugenenazirov/service-starter/internal/config"
	"github.com/eugenenazirov/service-starter/internal/logging"
)

var signalNotify = signal.Notify

type cliFlags struct {
	options     config.Options
	printConfig bool
}

func parseFlags(args []string) (cliFlags, error) {
	kingpinApp := kingpin.New("service-starter", "HTTP service starter with layered YAML configuration")
	configDir := kingpinApp.Flag("config-dir", "Directory holding config.common.yaml and config.<env>.yaml (env CONFIG_DIR)").String()
	env := kingpinApp.Flag("env", "Environment name: dev, test, stage, prod, ... (env APP_ENV)").Short('e').String()
	envFile := kingpinApp.Flag("env-file", "Environment override file replacing config.<env>.yaml (env CONFIG_PATH)").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	logLevel := kingpinApp.Flag("log-level", "Log level: DEBUG, INFO, WARNING, ERROR, CRITICAL").String()
	rateLimitRPS := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurst := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	printConfig := kingpinApp.Flag("print-config", "Print the effective configuration with secrets masked and exit").Bool()

	if _, err := kingpinApp.Parse(args); err != nil {
		return cliFlags{}, err
	}

	overrides := &config.Overrides{}
	if *port != "" {
		overrides.Port = port
	}
	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}
	if *rateLimitRPS >= 0 {
		overrides.RateLimitRPS = rateLimitRPS
	}
	if *rateLimitBurst >= 0 {
		overrides.RateLimitBurst = rateLimitBurst
	}

	return cliFlags{
		options: config.Options{
			Dir:     *configDir,
			Env:     *env,
			EnvFile: *envFile,
			CLI:     overrides,
		},
		printConfig: *printConfig,
	}, nil
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	kingpin.FatalIfError(err, "invalid arguments")

	cfg, err := config.Load(flags.options)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if flags.printConfig {
		if err := printConfig(os.Stdout, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to print configuration: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger, err := logging.New(cfg.Logging, cfg.EffectiveLevel())
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.String("env", cfg.App.Env),
		zap.Strings("sources", cfg.Sources),
		zap.String("log_level", cfg.EffectiveLevel()),
	)

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	// not ready is reported by /health/readiness; the server still starts
	_ = app.Warmup(context.Background())

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.Server.ShutdownGracePeriod, logger)
}

func printConfig(w io.Writer, cfg config.Config) error {
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	for _, source := range cfg.Sources {
		if _, err := fmt.Fprintf(w, "# source: %s\n", source); err != nil {
			return err
		}
	}
	_, err = w.Write(data)
	return err
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
