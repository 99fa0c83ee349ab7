package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where logs go and how verbose they are.
type Options struct {
	Dir   string // default "log"
	Level string // debug|info|warn|error, default info
}

func (o Options) level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(o.Level)
	if err != nil {
		return zap.InfoLevel
	}
	return lvl
}

func ensureLogDir(dir string) string {
	if dir == "" {
		dir = "log"
	}
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// NewLog returns a JSON logger writing to stdout and to a rotated file n
// inside opts.Dir.
func NewLog(opts Options, n string) *zap.Logger {
	dir := ensureLogDir(opts.Dir)

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	console := zapcore.Lock(os.Stdout)

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(dir, n),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	})

	lvl := opts.level()
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, lvl),
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), console, lvl),
	)
	return zap.New(core)
}
