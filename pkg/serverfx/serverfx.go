// Package serverfx wires the bridge into an Fx application: loggers, Kafka
// handles, pumps, router and the HTTP server lifecycle.
package serverfx

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/joeydtaylor/kafka-bridge/pkg/bridge"
	"github.com/joeydtaylor/kafka-bridge/pkg/buffer"
	"github.com/joeydtaylor/kafka-bridge/pkg/config"
	"github.com/joeydtaylor/kafka-bridge/pkg/consumer"
	"github.com/joeydtaylor/kafka-bridge/pkg/forward"
	"github.com/joeydtaylor/kafka-bridge/pkg/middleware/logger"
	"github.com/joeydtaylor/kafka-bridge/pkg/middleware/metrics"
	"github.com/joeydtaylor/kafka-bridge/pkg/pump"
	"github.com/joeydtaylor/kafka-bridge/pkg/transport/httpx"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Handles are the open consumer handles keyed by topic.
type Handles map[string]consumer.Handle

// Opener opens one handle per configured topic.
type Opener func(cfg config.Config, log *zap.Logger) (Handles, error)

// OpenKafka is the production Opener.
func OpenKafka(cfg config.Config, log *zap.Logger) (Handles, error) {
	hs, err := consumer.OpenKafka(cfg.Topics, consumer.KafkaOptions{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		ClientID:    cfg.ClientID,
		ResetOffset: cfg.OffsetReset,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	return Handles(hs), nil
}

// ---------- Providers ----------

func provideLogOptions(cfg config.Config) logger.Options {
	return logger.Options{Dir: cfg.LogDir, Level: cfg.LogLevel}
}

func provideHandles(cfg config.Config, open Opener, log *zap.Logger) (Handles, error) {
	hs, err := open(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open consumers: %w", err)
	}
	return hs, nil
}

type bridgeOut struct {
	fx.Out
	Server *bridge.Server
	Pumps  *pump.Group
}

// provideBridge picks the serving mode. Buffered mode gets one pump per topic;
// synchronous mode gets an empty group.
func provideBridge(cfg config.Config, hs Handles, log *zap.Logger) bridgeOut {
	if cfg.Mode() == config.ModeSynchronous {
		mode := bridge.NewSynchronous(hs, log)
		return bridgeOut{
			Server: bridge.NewServer(cfg.Topics, mode, log),
			Pumps:  pump.NewGroup(),
		}
	}

	var fwd pump.Forwarder
	if cfg.ForwardURL != "" {
		fwd = forward.New(cfg.ForwardURL, cfg.ForwardTimeout())
	}

	bufs := make(map[string]*buffer.Recent, len(hs))
	pumps := make([]*pump.Pump, 0, len(hs))
	for _, topic := range cfg.Topics {
		buf := buffer.NewRecent(cfg.MostRecentCount)
		bufs[topic] = buf
		pumps = append(pumps, pump.New(hs[topic], buf, fwd, log))
	}
	return bridgeOut{
		Server: bridge.NewServer(cfg.Topics, bridge.NewBuffered(bufs), log),
		Pumps:  pump.NewGroup(pumps...),
	}
}

type routerDeps struct {
	fx.In

	Server  *bridge.Server
	LogMW   *logger.Middleware
	Metrics http.Handler `name:"metrics"`
	R       httpx.Router
}

func provideRouter(d routerDeps) http.Handler {
	return bridge.BuildRouter(d.Server, bridge.BuildDeps{
		LogMW:   d.LogMW,
		Metrics: d.Metrics,
		Router:  d.R,
	})
}

// ---------- Lifecycle ----------

type serverDeps struct {
	fx.In

	Cfg      config.Config
	Logger   *zap.Logger
	App      http.Handler `name:"app"`
	Server   *bridge.Server
	Pumps    *pump.Group
	Handles  Handles
	Shutdown fx.Shutdowner
}

func registerHooks(lc fx.Lifecycle, d serverDeps) {
	addr := d.Cfg.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      d.App,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		TLSConfig:    &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13},
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			d.Pumps.Start(context.Background())

			serve := func() error { return srv.Serve(ln) }
			fields := []zap.Field{
				zap.String("addr", ln.Addr().String()),
				zap.String("mode", d.Server.Mode().Name()),
				zap.Strings("topics", d.Cfg.Topics),
			}
			if d.Cfg.TLS() {
				d.Logger.Info("server starting (TLS)", append(fields, zap.String("cert", d.Cfg.TLSCert))...)
				serve = func() error { return srv.ServeTLS(ln, d.Cfg.TLSCert, d.Cfg.TLSKey) }
			} else {
				d.Logger.Info("server starting (PLAINTEXT)", fields...)
				srv.TLSConfig = nil
			}
			if d.Cfg.ForwardURL != "" {
				d.Logger.Info("forwarding converted messages", zap.String("url", d.Cfg.ForwardURL))
			}

			go func() {
				if err := serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					d.Logger.Error("server failed", zap.Error(err))
					_ = d.Shutdown.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping")
			err := srv.Shutdown(ctx)
			if perr := d.Pumps.Stop(ctx); perr != nil {
				d.Logger.Warn("consumption loops did not stop in time", zap.Error(perr))
			}
			for _, h := range d.Handles {
				h.Close()
			}
			_ = d.Logger.Sync()
			return err
		},
	})
}

// ---------- Public Fx module ----------

// Module builds the complete application for cfg.
func Module(cfg config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(provideLogOptions),
		logger.Module,
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),

		fx.Provide(fx.Annotate(metrics.ProvideMetrics, fx.ResultTags(`name:"metrics"`))),
		fx.Provide(httpx.NewChi),

		fx.Provide(func() Opener { return OpenKafka }),
		fx.Provide(provideHandles),
		fx.Provide(provideBridge),
		fx.Provide(fx.Annotate(provideRouter, fx.ResultTags(`name:"app"`))),

		fx.Invoke(registerHooks),
	)
}
