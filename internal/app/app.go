// Package app wires the application together: registry, price history,
// opportunity cache, extraction client, scan orchestrator, notification
// intake, alerting, and the HTTP/WebSocket server. It owns the process
// lifecycle and shuts everything down in order when the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/shelfwatch/shelfarb/internal/arb"
	"github.com/shelfwatch/shelfarb/internal/config"
	"github.com/shelfwatch/shelfarb/internal/domain"
	"github.com/shelfwatch/shelfarb/internal/extract"
	"github.com/shelfwatch/shelfarb/internal/history"
	"github.com/shelfwatch/shelfarb/internal/intake"
	"github.com/shelfwatch/shelfarb/internal/notify"
	"github.com/shelfwatch/shelfarb/internal/registry"
	"github.com/shelfwatch/shelfarb/internal/scan"
	"github.com/shelfwatch/shelfarb/internal/server"
	"github.com/shelfwatch/shelfarb/internal/server/handler"
	"github.com/shelfwatch/shelfarb/internal/server/ws"
)

// App is the root application object.
type App struct {
	cfg    config.Config
	logger *slog.Logger
}

// New creates an App from the given configuration and logger.
func New(cfg config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the server, hub, and rescan schedule,
// and blocks until the context is cancelled. On cancellation it drains
// in-flight scans and shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting",
		slog.Int("port", a.cfg.Server.Port),
		slog.String("log_level", a.cfg.LogLevel),
	)

	reg := registry.New()
	store := history.New()

	cache := arb.NewCache(reg, store,
		arb.NewConfig(a.cfg.Arbitrage.MinNetMargin, a.cfg.Arbitrage.MinROI, a.cfg.Arbitrage.FeeRates),
		a.logger)

	hub := ws.NewHub(a.logger)
	alerter := a.buildAlerter()
	cache.OnUpdate(func(productID string, prev, opp *domain.Opportunity) {
		ev := ws.Event{Type: "opportunity_update", ProductID: productID, Opportunity: opp, At: time.Now().UTC()}
		if opp == nil {
			ev.Type = "opportunity_cleared"
		}
		hub.Publish(ev)
		if alerter != nil {
			alerter.OpportunityUpdate(productID, prev, opp)
		}
	})

	client := extract.NewHTTPClient(
		a.cfg.Extraction.BaseURL,
		a.cfg.Extraction.APIKey,
		a.cfg.Extraction.RequestTimeout.Duration,
	)
	orch := scan.New(reg, client, store, cache, scan.Options{
		GlobalConcurrency: a.cfg.Scan.GlobalConcurrency,
		CallTimeout:       a.cfg.Extraction.RequestTimeout.Duration,
		Policy: extract.RetryPolicy{
			MaxAttempts: a.cfg.Scan.MaxAttempts,
			BaseDelay:   a.cfg.Scan.BackoffBase.Duration,
			MaxDelay:    a.cfg.Scan.BackoffMax.Duration,
		},
	}, a.logger)
	orch.Start(ctx)

	in := intake.New(reg, orch, a.cfg.Intake.RecordWindow, a.logger)

	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:        handler.NewHealthHandler(a.logger),
		Webhooks:      handler.NewWebhookHandler(in, a.logger),
		Products:      handler.NewProductHandler(reg, orch, store, cache, a.logger),
		Opportunities: handler.NewOpportunityHandler(cache, in, a.logger),
	}, hub, a.logger)

	sched, err := a.startRescanSchedule(ctx, reg, orch)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if sched != nil {
			sched.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		orch.Wait()
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("app: %w", err)
	}
	a.logger.Info("stopped")
	return nil
}

// buildAlerter assembles the configured alert channels, or returns nil when
// alerting is disabled.
func (a *App) buildAlerter() *notify.Alerter {
	if !a.cfg.Notify.Enabled {
		return nil
	}
	var senders []notify.Sender
	if a.cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(a.cfg.Notify.DiscordWebhookURL))
	}
	if a.cfg.Notify.TelegramBotToken != "" && a.cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			a.cfg.Notify.TelegramBotToken, a.cfg.Notify.TelegramChatID))
	}
	if len(senders) == 0 {
		return nil
	}
	return notify.NewAlerter(senders, a.logger)
}

// startRescanSchedule starts the periodic full rescan if one is configured.
// The schedule is a supplement to change notifications: it catches drift on
// pages whose monitor missed a change.
func (a *App) startRescanSchedule(ctx context.Context, reg *registry.Registry, orch *scan.Orchestrator) (*cron.Cron, error) {
	spec := a.cfg.Scan.RescanCron
	if spec == "" {
		return nil, nil
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		products := reg.List(true)
		a.logger.InfoContext(ctx, "scheduled rescan",
			slog.Int("products", len(products)),
		)
		for _, p := range products {
			if _, err := orch.Trigger(p.ID, "schedule"); err != nil {
				a.logger.WarnContext(ctx, "scheduled scan trigger failed",
					slog.String("product_id", p.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("app: rescan schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
