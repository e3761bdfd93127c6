// Command httppoll polls a JSON endpoint with a Poller.
//
// The endpoint may dictate the next delay through delay_path.
// Editing the config file applies the new interval and polls right away.
// SIGUSR1 opens the transition window and interrupts the current round.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ngicks/varpoll"
	"github.com/ngicks/varpoll/executor/pool"
	"github.com/ngicks/varpoll/executor/timer"
	"github.com/ngicks/varpoll/history"
	"github.com/ngicks/varpoll/history/gormstore"
	"github.com/ngicks/varpoll/history/inmemory"
	"github.com/ngicks/varpoll/httpwork"
	"github.com/ngicks/varpoll/logger"
	"github.com/ngicks/varpoll/middleware"
	logmw "github.com/ngicks/varpoll/middleware/log"
	"github.com/ngicks/varpoll/middleware/ratelimit"
	recovermw "github.com/ngicks/varpoll/middleware/recover"
	"github.com/ngicks/varpoll/middleware/timeout"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	configPath := flag.String("config", "httppoll.yaml", "path to the yaml config")
	flag.Parse()

	zl := zerolog.New(os.Stderr).With().Timestamp().Str("app", "httppoll").Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, zl); err != nil {
		zl.Fatal().Err(err).Msg("exiting")
	}
}

func run(ctx context.Context, configPath string, zl zerolog.Logger) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	zl = zl.Level(level)
	base := logger.NewZerolog(zl)
	pollLogger := logger.Throttle(base, cfg.Log.ErrorEvery.D(), cfg.Log.ErrorBurst)

	// Deferred first so that it runs last: the executor must drain in-flight rounds,
	// whose observer records into the store, before the store is closed.
	recorder, closeRecorder, err := openHistory(ctx, cfg, base)
	if err != nil {
		return err
	}
	defer closeRecorder()

	var ex varpoll.Executor
	switch cfg.Executor.Kind {
	case "pool":
		p, err := pool.New(ctx, cfg.Executor.Workers, cfg.Executor.QueueSize)
		if err != nil {
			return err
		}
		defer p.Stop()
		ex = p
	default:
		t := timer.New(ctx)
		defer t.Close()
		ex = t
	}

	pollOpts := []httpwork.Option{}
	if cfg.DelayPath != "" {
		pollOpts = append(pollOpts, httpwork.WithDelayPath(cfg.DelayPath))
	}
	if cfg.Transition.Window > 0 {
		pollOpts = append(pollOpts, httpwork.WithTransition(cfg.Transition.Window.D(), cfg.Transition.ShortInterval.D()))
	}
	poll := httpwork.New(&http.Client{}, cfg.URL, cfg.Interval.D(), pollOpts...)

	mw := middleware.New(
		recovermw.New().Middleware,
		logmw.New(base, logmw.LogAdditionalValues("url", cfg.URL)).Middleware,
	)
	if cfg.RateLimit.Every > 0 {
		mw.Use(ratelimit.New(cfg.RateLimit.Every.D(), cfg.RateLimit.Burst).Middleware)
	}
	if cfg.Timeout > 0 {
		mw.Use(timeout.New(cfg.Timeout.D()).Middleware)
	}

	opts := []varpoll.Option{
		varpoll.WithLogger(pollLogger),
		varpoll.WithStartupDelay(cfg.StartupDelay.D()),
		varpoll.WithObserver(history.Observer(recorder, base)),
	}
	if cfg.ID != "" {
		opts = append(opts, varpoll.WithID(cfg.ID))
	}

	poller, err := varpoll.New(ex, mw.Apply(poll.Work), cfg.Fallback.D(), opts...)
	if err != nil {
		return err
	}
	defer poller.Stop(true)
	base.Info("started", "poller_id", poller.ID(), "url", cfg.URL)

	reloaded := make(chan struct{}, 1)
	go func() {
		err := watchConfig(ctx, configPath, 200*time.Millisecond, base, func() {
			select {
			case reloaded <- struct{}{}:
			default:
			}
		})
		if err != nil {
			base.Error(err, "path", configPath)
		}
	}()

	transition := make(chan os.Signal, 1)
	if len(transitionSignals) > 0 {
		signal.Notify(transition, transitionSignals...)
		defer signal.Stop(transition)
	}

	for {
		select {
		case <-ctx.Done():
			base.Info("shutting down", "poller_id", poller.ID())
			return nil
		case <-reloaded:
			next, err := LoadConfig(configPath)
			if err != nil {
				base.Error(err, "path", configPath, "reload", "rejected")
				continue
			}
			if next.URL != cfg.URL {
				base.Info("url change needs a restart", "old", cfg.URL, "new", next.URL)
			}
			poll.SetInterval(next.Interval.D())
			if err := poller.Reschedule(0, false); err != nil {
				return err
			}
			base.Info("reloaded", "poller_id", poller.ID(), "interval", next.Interval.D().String())
		case <-transition:
			poll.MarkTransition()
			if err := poller.Reschedule(0, true); err != nil {
				return err
			}
		}
	}
}

func openHistory(ctx context.Context, cfg *Config, l varpoll.Logger) (history.Recorder, func(), error) {
	if cfg.History.Sqlite == "" {
		return inmemory.New(cfg.History.Size), func() {}, nil
	}

	store, err := gormstore.NewSqlite3(
		cfg.History.Sqlite,
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)},
	)
	if err != nil {
		return nil, nil, err
	}
	if cfg.History.Keep > 0 {
		removed, err := store.Prune(ctx, time.Now().Add(-cfg.History.Keep.D()))
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		l.Info("pruned history", "removed", strconv.FormatInt(removed, 10))
	}
	return store, func() {
		if err := store.Close(); err != nil {
			l.Error(err)
		}
	}, nil
}
