package logger

import "go.uber.org/zap"

func ProvideLoggerMiddleware(opts Options) *Middleware {
	return &Middleware{access: NewLog(opts, "http-access.log")}
}

func ProvideLogger(opts Options) *zap.Logger { return NewLog(opts, "bridge.log") }
