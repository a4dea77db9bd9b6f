package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sprunkimylove-arch/timer-bot/internal/config"
	"github.com/sprunkimylove-arch/timer-bot/internal/metrics"
	"github.com/sprunkimylove-arch/timer-bot/internal/notify"
	"github.com/sprunkimylove-arch/timer-bot/internal/scheduler"
	"github.com/sprunkimylove-arch/timer-bot/internal/store"
	"github.com/sprunkimylove-arch/timer-bot/internal/telegram"
	"github.com/sprunkimylove-arch/timer-bot/internal/timer"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	metrics *metrics.Metrics
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, newBotClient(cfg.PollTimeout))
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      newHTTPHandler(reg),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv, metrics: metrics.New(reg)}, nil
}

// apiCallTimeout bounds a single Bot API call beyond the long-poll wait.
const apiCallTimeout = 15 * time.Second

// newBotClient returns the Bot API HTTP client. Its timeout covers a full
// getUpdates long poll plus apiCallTimeout, so a hung call fails instead of
// holding a chat lock forever.
func newBotClient(pollTimeout int) *http.Client {
	return &http.Client{Timeout: time.Duration(pollTimeout)*time.Second + apiCallTimeout}
}

type updateHandler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update)
}

// dispatch handles upd on its own goroutine. The engine serializes work per
// chat, so a slow chat does not hold up the others.
func dispatch(ctx context.Context, wg *sync.WaitGroup, h updateHandler, upd tgbotapi.Update) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.HandleUpdate(ctx, upd)
	}()
}

// newHTTPHandler serves the liveness probe on / and /healthz, and metrics.
func newHTTPHandler(reg *prometheus.Registry) http.Handler {
	ok := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", ok)
	mux.HandleFunc("GET /healthz", ok)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

// openBackend picks the subscriber persistence for cfg.StoreDriver.
func openBackend(ctx context.Context, cfg config.Config) (store.Backend, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := store.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.StoreFile:
		return store.NewFileBackend(cfg.SubsFile), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting timer-bot",
		zap.String("bot", a.bot.Self.UserName),
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("store", a.cfg.StoreDriver),
	)

	backend, err := openBackend(ctx, a.cfg)
	if err != nil {
		a.log.Error("open subscriber store failed", zap.Error(err))
		return err
	}
	subs := store.NewSubscribers(backend, a.log, a.metrics)
	subs.Load(ctx)

	sched := scheduler.New(a.log)
	messenger := telegram.NewMessenger(a.bot, a.cfg.SilentPin)
	engine := timer.New(timer.Deps{
		Messenger:   messenger,
		Scheduler:   sched,
		Subscribers: subs,
		Announcer:   notify.New(messenger, a.log, a.metrics),
		Log:         a.log,
		Metrics:     a.metrics,
	}, timer.Options{Pin: a.cfg.PinTimer})
	router := telegram.NewRouter(a.bot, a.log, engine, subs, telegram.Options{
		CleanPinService: a.cfg.CleanPinService,
	})

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	if a.cfg.DropPendingUpdates {
		if _, err := a.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
			a.log.Warn("drop pending updates failed", zap.Error(err))
		}
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.cfg.PollTimeout
	updCh := a.bot.GetUpdatesChan(u)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var inflight sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.bot.StopReceivingUpdates()
			inflight.Wait()
			sched.Stop()

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()
			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if err := subs.Close(); err != nil {
				a.log.Warn("subscriber store close error", zap.Error(err))
			}
			return nil

		case upd, ok := <-updCh:
			if !ok {
				inflight.Wait()
				return errors.New("updates channel closed")
			}
			dispatch(ctx, &inflight, router, upd)
		}
	}
}
