package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/burakelik/cinema-ticketing/internal/booking"
	"github.com/burakelik/cinema-ticketing/internal/domain"
	"github.com/burakelik/cinema-ticketing/internal/events"
	"github.com/burakelik/cinema-ticketing/internal/repository"
	"github.com/burakelik/cinema-ticketing/internal/sweeper"
	appvalidator "github.com/burakelik/cinema-ticketing/internal/validator"
	"github.com/burakelik/cinema-ticketing/internal/vcs"
	"github.com/exaring/otelpgx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
)

var (
	version = vcs.Version()
)

type Application struct {
	config         Config
	logger         *slog.Logger
	db             *pgxpool.Pool
	redis          redis.UniversalClient
	validator      *validator.Validate
	sessionManager *scs.SessionManager

	store    domain.BookingStore
	metadata domain.MetadataReader
	tickets  domain.TicketReader

	bookings BookingService
	sweeper  *sweeper.Sweeper
}

type Config struct {
	Port             int
	Env              string
	OtelCollectorUrl string

	DB      DBConfig
	Redis   RedisConfig
	Booking booking.Config
	Sweep   sweeper.Config
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	bookingDefaults := booking.DefaultConfig()
	flag.DurationVar(&cfg.Booking.SeatLockTTL, "seat-lock-ttl", bookingDefaults.SeatLockTTL, "How long a seat lock is held before expiring")
	flag.DurationVar(&cfg.Booking.SessionTTL, "booking-session-ttl", bookingDefaults.SessionTTL, "How long a draft booking session stays alive")
	flag.DurationVar(&cfg.Booking.CheckoutHold, "checkout-hold", bookingDefaults.CheckoutHold, "How long seats stay held after checkout starts")
	flag.IntVar(&cfg.Booking.MaxSeatsPerSession, "max-seats-per-session", bookingDefaults.MaxSeatsPerSession, "Maximum seats a single booking session may hold")
	flag.IntVar(&cfg.Booking.PublishRetries, "publish-retries", bookingDefaults.PublishRetries, "Seat event publish retry attempts")
	flag.DurationVar(&cfg.Booking.PublishBackoff, "publish-backoff", bookingDefaults.PublishBackoff, "Delay between seat event publish retries")

	sweepDefaults := sweeper.DefaultConfig()
	flag.DurationVar(&cfg.Sweep.Interval, "sweep-interval", sweepDefaults.Interval, "Interval between expiration sweeps")
	flag.DurationVar(&cfg.Sweep.ErrorBackoff, "sweep-error-backoff", sweepDefaults.ErrorBackoff, "Delay before retrying a failed sweep")
	flag.DurationVar(&cfg.Sweep.LockGrace, "sweep-lock-grace", sweepDefaults.LockGrace, "Grace period before an expired seat lock is deleted")
	flag.DurationVar(&cfg.Sweep.SessionGrace, "sweep-session-grace", sweepDefaults.SessionGrace, "Grace period before an expired draft session is canceled")
	flag.DurationVar(&cfg.Sweep.Retention, "sweep-retention", sweepDefaults.Retention, "How long canceled sessions are retained before purge")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app, err := NewApplication(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	return app.Serve()
}

func NewApplication(cfg Config, logger *slog.Logger) (*Application, error) {
	db, err := newDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := repository.NewPostgresBookingStore(db)
	metadata := repository.NewPostgresMetadataRepository(db)
	tickets := repository.NewPostgresTicketRepository(db)
	publisher := events.NewRedisSeatEventPublisher(redisClient)

	engine := booking.NewEngine(store, metadata, tickets, publisher, logger, cfg.Booking)

	app := &Application{
		config:         cfg,
		logger:         logger,
		db:             db,
		redis:          redisClient,
		validator:      appvalidator.NewValidator(),
		sessionManager: newSessionManager(redisClient),
		store:          store,
		metadata:       metadata,
		tickets:        tickets,
		bookings:       engine,
		sweeper:        sweeper.New(store, logger, cfg.Sweep),
	}

	return app, nil
}

func (app *Application) Close() {
	app.redis.Close()
	app.db.Close()
}

func newSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func newRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, err
	}

	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) Serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()

	go app.sweeper.Start(sweepCtx)

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		stopSweeper()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("cinema-ticketing-api", otelchi.WithChiRoutes(r)))
	r.Use(app.requestLogger)
	r.Use(app.recoverPanic)
	r.Use(app.sessionManager.LoadAndSave)
	r.Use(app.ensureGuestUserSession)

	r.Get("/health", app.GetHealth)

	r.Route("/showtimes/{showtimeId}", func(r chi.Router) {
		r.Get("/seat-map", app.GetSeatMapByShowtime)
		r.Get("/seat-events", app.StreamSeatEvents)
		r.Post("/booking-sessions", app.CreateBookingSessionHandler)
	})

	r.Route("/booking-sessions/{bookingSessionId}", func(r chi.Router) {
		r.Get("/", app.GetBookingSessionHandler)
		r.Post("/seats", app.LockSeatsHandler)
		r.Put("/seats", app.ReplaceSeatsHandler)
		r.Delete("/seats", app.ReleaseSeatsHandler)
		r.Put("/combos", app.SetCombosHandler)
		r.Post("/validation", app.ValidateBookingSessionHandler)
		r.Post("/checkout", app.CheckoutHandler)
	})

	return r
}
