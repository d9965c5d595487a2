package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eugenenazirov/service-starter/internal/config"
)

// ParseLevel maps a configuration level name to a zap level. WARNING is an
// alias for WARN and CRITICAL for FATAL.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "INFO", "":
		return zapcore.InfoLevel, nil
	case "WARN", "WARNING":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "CRITICAL", "FATAL":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// openFile is zap.Open, swapped in tests to observe sink cleanup.
var openFile = zap.Open

// New builds a logger that writes to every sink enabled in cfg: the console
// (text or JSON), a plain text file and a JSON file.
func New(cfg config.LoggingConfig, level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	enabler := zap.NewAtomicLevelAt(lvl)

	var (
		cores   []zapcore.Core
		closers []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if cfg.Console {
		enc := textEncoder(cfg.DetailedFormat)
		if cfg.Format == "json" {
			enc = jsonEncoder()
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stdout), enabler))
	}
	if cfg.File.Enabled {
		sink, closeSink, err := openSink(cfg.File.Path)
		if err != nil {
			return nil, err
		}
		closers = append(closers, closeSink)
		cores = append(cores, zapcore.NewCore(textEncoder(cfg.DetailedFormat), sink, enabler))
	}
	if cfg.JSON.Enabled {
		sink, closeSink, err := openSink(cfg.JSON.FilePath)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, closeSink)
		cores = append(cores, zapcore.NewCore(jsonEncoder(), sink, enabler))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.DetailedFormat {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.StacktraceKey = "stacktrace"
	return enc
}

func jsonEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(encoderConfig())
}

func textEncoder(detailed bool) zapcore.Encoder {
	enc := encoderConfig()
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	if !detailed {
		enc.CallerKey = zapcore.OmitKey
	}
	return zapcore.NewConsoleEncoder(enc)
}

func openSink(path string) (zapcore.WriteSyncer, func(), error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	sink, closeSink, err := openFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return sink, closeSink, nil
}
