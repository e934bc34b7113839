package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pizzeria-pos/storefront/internal/apiclient"
	"github.com/pizzeria-pos/storefront/internal/catalog"
	"github.com/pizzeria-pos/storefront/internal/config"
	"github.com/pizzeria-pos/storefront/internal/enum"
	"github.com/pizzeria-pos/storefront/internal/events"
	"github.com/pizzeria-pos/storefront/internal/handler"
	"github.com/pizzeria-pos/storefront/internal/router"
	"github.com/pizzeria-pos/storefront/internal/session"
	"github.com/pizzeria-pos/storefront/internal/tracking"
	"github.com/pizzeria-pos/storefront/internal/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sweepInterval = time.Minute

func main() {
	cfg := config.Load()

	log, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := apiclient.New(cfg.APIBaseURL, cfg.HTTPTimeout, log)
	if err != nil {
		log.Fatal("invalid API_BASE_URL", zap.Error(err))
	}

	// Shared catalog snapshot (optional)
	var store catalog.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, catalog snapshots disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			store = catalog.NewRedisStore(rdb, cfg.CatalogTTL)
			log.Info("catalog snapshots enabled", zap.String("addr", cfg.RedisAddr))
		}
	}

	// Lifecycle events (optional)
	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		defer kp.Close()
		pub = kp
		log.Info("order events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	pub = events.NewLogging(pub, log)

	sessions := session.NewStore(session.Deps{
		Source:    api,
		Store:     store,
		Placer:    api,
		Publisher: pub,
		Log:       log,
	})

	hub := ws.NewHub(log)

	customer := tracking.NewTracker(api, enum.SurfaceCustomer, log)
	customer.SetListener(tracking.Listeners{
		events.NewStatusListener(pub),
		tracking.ListenerFunc(func(v tracking.View, _ string) {
			if err := hub.BroadcastJSON(ws.OrderTopic(v.OrderID), ws.EventOrderView, v); err != nil {
				log.Warn("broadcast order view", zap.Int64("order_id", v.OrderID), zap.Error(err))
			}
		}),
	})
	admin := tracking.NewTracker(api, enum.SurfaceAdmin, log)

	queue := tracking.NewQueue(api, api, enum.SurfaceAdmin, log)
	var (
		boardMu sync.Mutex
		board   tracking.QueueView
	)
	queue.OnApply(func(qv tracking.QueueView) {
		if err := hub.BroadcastJSON(ws.QueueTopic, ws.EventQueueView, qv); err != nil {
			log.Warn("broadcast order board", zap.Error(err))
		}
		boardMu.Lock()
		diff := events.QueueDiff(board, qv, time.Now())
		board = qv
		boardMu.Unlock()
		for _, e := range diff {
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			pub.Publish(pctx, e)
			cancel()
		}
	})

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run(func() { hub.Run(ctx) })
	run(func() { sessions.RunSweeper(ctx, sweepInterval, cfg.SessionIdle) })
	run(func() {
		tracking.NewPoller(cfg.PollInterval, func(ctx context.Context) error {
			if len(hub.Topics(ws.QueueTopic)) == 0 {
				return nil
			}
			_, err := queue.Refresh(ctx)
			return err
		}, log).Run(ctx)
	})
	run(func() {
		tracking.NewPoller(cfg.PollInterval, func(ctx context.Context) error {
			watched := hub.WatchedOrders()
			// Views of orders nobody watches are dropped so that lookups by
			// arbitrary id do not accumulate.
			customer.Retain(watched)
			admin.Retain(watched)

			var errs []error
			for _, id := range watched {
				if _, err := customer.Project(ctx, id); err != nil && !errors.Is(err, tracking.ErrStale) {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		}, log).Run(ctx)
	})

	r := router.New(cfg, router.Deps{
		Sessions: sessions,
		Hub:      hub,
		Customer: customer,
		Admin:    admin,
		Queue:    queue,
		QR:       handler.DefaultQRGenerator{BaseURL: cfg.PublicURL},
		Log:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Port), zap.String("api", cfg.APIBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	wg.Wait()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
