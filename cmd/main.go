package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/hasanat-app/deeds-service/internal/aggregate"
	"github.com/hasanat-app/deeds-service/internal/config"
	"github.com/hasanat-app/deeds-service/internal/infrastructure/db/postgres"
	rabbit "github.com/hasanat-app/deeds-service/internal/infrastructure/messaging/rabbitmq"
	redistore "github.com/hasanat-app/deeds-service/internal/infrastructure/totals/redis"
	"github.com/hasanat-app/deeds-service/internal/logger"
	"github.com/hasanat-app/deeds-service/internal/period"
	"github.com/hasanat-app/deeds-service/internal/transport/http/handlers"
	authmw "github.com/hasanat-app/deeds-service/internal/transport/http/middleware"
	"github.com/hasanat-app/deeds-service/internal/transport/http/router"
	zlog "github.com/rs/zerolog/log"
)

// sysClock implements aggregate.Clock using system time
type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now().UTC() }

// App holds all dependencies for the service
type App struct {
	Config    *config.Config
	Server    *http.Server
	DB        *sql.DB
	Scheduler *aggregate.Scheduler

	Consumer  *rabbit.Consumer
	Publisher *rabbit.Publisher
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	u, _ := url.Parse(cfg.DatabaseURL)
	zlog.Info().
		Str("db_user", u.User.Username()).
		Str("db_host", u.Host).
		Str("db_db", u.Path).
		Msg("db config loaded")

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("db open failed")
	}
	defer db.Close()

	{
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			zlog.Fatal().Err(err).Msg("db ping failed")
		}
	}

	app := NewApp(cfg, db)
	defer func() {
		if app.Consumer != nil {
			_ = app.Consumer.Close()
		}
		if app.Publisher != nil {
			_ = app.Publisher.Close()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go app.Scheduler.Run(ctx)
	if app.Consumer != nil {
		app.Consumer.Start(ctx)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	zlog.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
	if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		zlog.Fatal().Err(err).Msg("server crashed")
	}
}

func NewApp(cfg *config.Config, db *sql.DB) *App {
	// 1) Infrastructure
	eventLog := postgres.NewEventLog(db)
	cohorts := postgres.NewCohortRepo(db)

	store, err := redistore.New(cfg.RedisURL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("redis init failed")
	}

	periods, err := period.NewResolver(cfg.ReferenceTZ, mustWeekday(cfg.FirstDayOfWeek))
	if err != nil {
		zlog.Fatal().Err(err).Msg("period resolver init failed")
	}

	// publisher wiring
	var pub aggregate.FinalizePublisher = aggregate.NoopPublisher{}
	var rabbitPub *rabbit.Publisher

	if cfg.RabbitURL != "" {
		p, err := rabbit.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			zlog.Fatal().Err(err).Msg("rabbit publisher init failed")
		}
		rabbitPub = p
		pub = p
		zlog.Info().Str("exchange", cfg.RabbitExchange).Msg("rabbit publisher ready")
	} else {
		zlog.Warn().Msg("RABBIT_URL empty: finalization events will not be published")
	}

	// 2) Application
	svc := aggregate.New(eventLog, store, periods, sysClock{}, cfg.ApplyRetries, cfg.ApplyRetryBase)
	ranker := aggregate.NewRanker(store, cohorts)
	sched := aggregate.NewScheduler(svc, store, periods, sysClock{}, pub, cfg.TickInterval)

	var consumer *rabbit.Consumer
	if cfg.RabbitURL != "" {
		c, err := rabbit.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, sched)
		if err != nil {
			zlog.Fatal().Err(err).Msg("rabbit consumer init failed")
		}
		consumer = c
		zlog.Info().Str("queue", rabbit.QueueName).Msg("rabbit consumer ready")
	}

	// 3) Transport
	deeds := handlers.NewDeedsHandler(sched, sysClock{})
	lb := handlers.NewLeaderboardHandler(ranker, periods, sysClock{})
	totals := handlers.NewTotalsHandler(store, periods, sysClock{})
	admin := handlers.NewAdminHandler(svc)
	z := handlers.NewHealthHandler()
	auth := authmw.NewAuth(cfg.JWTSecret, cfg.JWTIssuer)

	// 4) Router
	httpHandler := router.New(deeds, lb, totals, admin, z, auth, cfg)

	// 5) Server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpHandler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &App{
		Config:    cfg,
		Server:    srv,
		DB:        db,
		Scheduler: sched,
		Consumer:  consumer,
		Publisher: rabbitPub,
	}
}

func mustWeekday(s string) time.Weekday {
	wd, err := period.ParseWeekday(s)
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid FIRST_DAY_OF_WEEK")
	}
	return wd
}
