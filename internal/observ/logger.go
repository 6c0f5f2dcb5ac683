package observ

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lalith-99/streams/internal/config"
)

// NewLogger builds the process logger. Production uses JSON on stdout,
// anything else the colored console encoder. When file.Filename is set
// the same entries are also written, as JSON, to a rotated file.
func NewLogger(env, level string, file config.LogFileConfig) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	atomic := zap.NewAtomicLevelAt(zapLevel)

	var encCfg zapcore.EncoderConfig
	var consoleEnc zapcore.Encoder
	if env == "production" {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), atomic),
	}

	if file.Filename != "" {
		if err := os.MkdirAll(filepath.Dir(file.Filename), 0o755); err != nil {
			return nil, err
		}
		fileEnc := zap.NewProductionEncoderConfig()
		fileEnc.TimeKey = "time"
		fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
		fileEnc.EncodeCaller = zapcore.ShortCallerEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEnc),
			zapcore.AddSync(RotatingFile(file)),
			atomic,
		))
	}

	opts := []zap.Option{zap.AddCaller()}
	if env != "production" {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

// RotatingFile returns the lumberjack writer behind the log file.
func RotatingFile(file config.LogFileConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   file.Filename,
		MaxSize:    file.MaxSize,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAge,
		Compress:   file.Compress,
	}
}
