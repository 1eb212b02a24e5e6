package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	nethttp "net/http"
	"time"

	"github.com/aq2208/bookstore-api/configs"
	"github.com/aq2208/bookstore-api/internal/adapter/cache"
	"github.com/aq2208/bookstore-api/internal/adapter/export"
	"github.com/aq2208/bookstore-api/internal/adapter/grpc"
	"github.com/aq2208/bookstore-api/internal/adapter/http"
	"github.com/aq2208/bookstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/bookstore-api/internal/adapter/kafka"
	"github.com/aq2208/bookstore-api/internal/adapter/queue"
	"github.com/aq2208/bookstore-api/internal/adapter/repo"
	"github.com/aq2208/bookstore-api/internal/logging"
	"github.com/aq2208/bookstore-api/internal/security"
	"github.com/aq2208/bookstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// consumerChannel is the part of *amqp.Channel the export worker consumes on.
type consumerChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type App struct {
	Router   *gin.Engine
	Books    *usecase.BookService
	Cart     *usecase.CartService
	Exporter *usecase.CartExporter
	Carts    usecase.CartRepository

	cfg    configs.Config
	log    *slog.Logger
	db     *sql.DB
	rdb    *redis.Client
	amqpCh *amqp.Channel

	// nil when rabbitmq is not configured
	openConsumerChannel func() (consumerChannel, error)
}

// OpenDB opens and pings MySQL with the configured pool limits.
func OpenDB(ctx context.Context, cfg configs.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// InitWithConfig wires every adapter the config enables. Optional
// infrastructure (redis, rabbitmq) is skipped when its address is empty.
// Nothing is started; see Run.
func InitWithConfig(ctx context.Context, cfg configs.Config) (*App, func(), error) {
	logging.Init(cfg.App.Name, cfg.Log.File, cfg.Log.Level)
	a := &App{cfg: cfg, log: logging.New("app")}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// storage
	var books usecase.BookRepository
	switch cfg.Storage.Driver {
	case "mysql":
		db, err := OpenDB(ctx, cfg)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = db.Close() })
		a.db = db
		books = repo.NewMySQLBookRepo(db)
		a.Carts = repo.NewMySQLCartRepo(db)
	default:
		books = repo.NewMemoryBookRepo()
		a.Carts = repo.NewMemoryCartRepo()
	}

	var bookOpts []usecase.BookServiceOption

	// redis: book cache + idempotency
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fail(fmt.Errorf("ping redis: %w", err))
		}
		closers = append(closers, func() { _ = rdb.Close() })
		a.rdb = rdb
		bookOpts = append(bookOpts,
			usecase.WithBookCache(cache.NewRedisBookCache(rdb, cfg.Cache.TTL)),
			usecase.WithIdempotency(cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)),
		)
	}

	// rabbitmq: book events + async export
	var events usecase.EventPublisher
	if cfg.Rabbit.URL != "" {
		conn, err := amqp.Dial(cfg.Rabbit.URL)
		if err != nil {
			return fail(fmt.Errorf("dial rabbitmq: %w", err))
		}
		closers = append(closers, func() { _ = conn.Close() })
		ch, err := conn.Channel()
		if err != nil {
			return fail(fmt.Errorf("open channel: %w", err))
		}
		if err := queue.DeclareTopology(ch, cfg.Rabbit.Exchange); err != nil {
			return fail(err)
		}
		a.amqpCh = ch
		a.openConsumerChannel = func() (consumerChannel, error) {
			// consumers get their own channel so prefetch does not throttle publishing
			c, err := conn.Channel()
			if err != nil {
				return nil, err
			}
			return c, nil
		}
		events = queue.NewRabbitPublisher(ch, cfg.Rabbit.Exchange)
		bookOpts = append(bookOpts, usecase.WithBookEvents(events))
	}

	a.Books = usecase.NewBookService(books, bookOpts...)
	a.Cart = usecase.NewCartService(a.Carts, books)
	a.Exporter = usecase.NewCartExporter(a.Cart, export.NewFileCartWriter(cfg.Export.Directory), events)

	// security
	users, err := security.NewUserStore(cfg.Security.Users)
	if err != nil {
		return fail(err)
	}
	tokens := security.NewTokenProvider(cfg)

	a.Router = http.NewRouter(http.Handlers{
		Books: http.NewBookHandler(a.Books, cfg.HTTP.BaseURL),
		Cart:  http.NewCartHandler(a.Cart, a.Exporter),
		Auth:  http.NewAuthHandler(users, tokens),
		Authn: middleware.NewAuthn(tokens, users),
	})

	return a, cleanup, nil
}

// Run starts the background consumers and the gRPC health server, then
// serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 3)

	if a.openConsumerChannel != nil {
		ch, err := a.openConsumerChannel()
		if err != nil {
			return fmt.Errorf("open consumer channel: %w", err)
		}
		defer ch.Close()
		router := queue.NewRouter(ch, queue.WithPrefetch(a.cfg.Rabbit.Prefetch))
		h := queue.NewExportCartHandler(a.Exporter)
		router.Register(queue.ExportQueue, queue.JSONHandler[usecase.ExportCartRequestedMsg]{HandleFunc: h.HandleExport})
		if err := router.Start(ctx); err != nil {
			return fmt.Errorf("start rabbit router: %w", err)
		}
		// consumers only stop on ctx, so cancel before waiting on any return path
		defer func() {
			cancel()
			router.Wait()
		}()
	}

	if len(a.cfg.Kafka.Brokers) > 0 {
		grp, err := kafka.NewGroup(a.cfg.Kafka.Brokers, a.cfg.Kafka.GroupID)
		if err != nil {
			return fmt.Errorf("kafka group: %w", err)
		}
		defer grp.Close()
		consumer := kafka.NewConsumer(grp, []string{a.cfg.Kafka.TopicIngest}, kafka.NewBookIngestHandler(a.Books).Handle)
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errc <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	if a.cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", a.cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		hs := grpc.NewHealthServer(a.cfg.GRPC.CheckInterval, a.healthChecks())
		go func() {
			if err := hs.Serve(ctx, lis); err != nil {
				errc <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	srv := &nethttp.Server{
		Addr:         a.cfg.App.HTTPAddr,
		Handler:      a.Router,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}
	go func() {
		a.log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errc <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}

	a.log.Info("shutting down")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("http shutdown", "err", err)
	}
	return runErr
}

func (a *App) healthChecks() map[string]grpc.Check {
	checks := map[string]grpc.Check{}
	if a.db != nil {
		checks["mysql"] = a.db.PingContext
	}
	if a.rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return a.rdb.Ping(ctx).Err() }
	}
	if a.amqpCh != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if a.amqpCh.IsClosed() {
				return errors.New("channel closed")
			}
			return nil
		}
	}
	return checks
}
