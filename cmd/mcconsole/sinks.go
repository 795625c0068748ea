package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcconsole/mcconsole-go/internal/config"
	"github.com/mcconsole/mcconsole-go/internal/discord"
	"github.com/mcconsole/mcconsole-go/internal/telemetry"
	"github.com/mcconsole/mcconsole-go/pkg/mcconsole"
)

const sinkShutdownTimeout = 5 * time.Second

// sinks are the optional event consumers enabled in the config: the
// Discord bridge and OpenTelemetry export. They outlive the command's
// signal context so the final stop transition is still delivered.
type sinks struct {
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	providers *telemetry.Providers
	metrics   *telemetry.Metrics
}

// startSinks subscribes the configured sinks to srv. commander receives
// messages relayed from Discord.
func startSinks(cfg *config.Config, srv *mcconsole.Server, commander discord.Commander) (*sinks, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &sinks{cancel: cancel}

	if cfg.OTel.Enabled() {
		providers, err := telemetry.Setup(ctx, telemetry.Config{
			Endpoint:    cfg.OTel.Endpoint,
			Insecure:    cfg.OTel.Insecure,
			ServiceName: cfg.OTel.ServiceName,
			Metrics:     cfg.OTel.Metrics,
			Logs:        cfg.OTel.Logs,
			Interval:    cfg.OTel.Interval(),
		})
		if err != nil {
			s.close()
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		s.providers = providers

		if providers.LoggerProvider != nil {
			el := telemetry.NewEventLogger(providers.LoggerProvider)
			srv.SubscribeAll(el.OnEvent)
			srv.SubscribeTransitions(el.OnTransition)
		}
		if providers.MeterProvider != nil {
			m, err := telemetry.NewMetrics(providers.MeterProvider, srv)
			if err != nil {
				s.close()
				return nil, fmt.Errorf("telemetry: %w", err)
			}
			s.metrics = m
			srv.SubscribeAll(m.OnEvent)
			srv.SubscribeTransitions(m.OnTransition)
		}
		logger.Info("telemetry enabled", "metrics", cfg.OTel.Metrics, "logs", cfg.OTel.Logs)
	}

	if cfg.Discord.Enabled {
		bridge, err := discord.New(discord.Config{
			Token:     cfg.Discord.Token,
			ChannelID: cfg.Discord.ChannelID,
			Events:    cfg.DiscordEvents(),
			Relay:     cfg.Discord.Relay,
			Logger:    logger,
		}, commander)
		if err != nil {
			s.close()
			return nil, err
		}
		srv.SubscribeAll(bridge.OnEvent)
		srv.SubscribeTransitions(bridge.OnTransition)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := bridge.Run(ctx); err != nil {
				logger.Error("discord bridge stopped", "error", err)
			}
		}()
	}

	return s, nil
}

// close stops the Discord bridge and flushes telemetry.
func (s *sinks) close() {
	s.cancel()
	s.wg.Wait()

	if s.metrics != nil {
		_ = s.metrics.Close()
	}
	if s.providers != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sinkShutdownTimeout)
		defer cancel()
		if err := s.providers.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}
}
