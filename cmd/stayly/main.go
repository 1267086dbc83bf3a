package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"stayly/internal/app/commands"
	bookingapp "stayly/internal/app/handlers/booking"
	"stayly/internal/app/handlers/notifications"
	propertyapp "stayly/internal/app/handlers/properties"
	"stayly/internal/app/middleware"
	appoutbox "stayly/internal/app/outbox"
	"stayly/internal/app/policies"
	"stayly/internal/app/queries"
	authsvc "stayly/internal/app/services/auth"
	"stayly/internal/app/uow"
	"stayly/internal/domain/auth"
	"stayly/internal/domain/availability"
	domainuser "stayly/internal/domain/user"
	"stayly/internal/infra/broker/kafka"
	redisstore "stayly/internal/infra/cache/redis"
	"stayly/internal/infra/config"
	mongodb "stayly/internal/infra/db/mongo"
	ginserver "stayly/internal/infra/http/gin"
	"stayly/internal/infra/inbox"
	"stayly/internal/infra/notify"
	"stayly/internal/infra/obs"
	infraoutbox "stayly/internal/infra/outbox"
	"stayly/internal/infra/security"
	"stayly/internal/infra/storage/memory"
	"stayly/internal/infra/storage/s3"
	"stayly/internal/infra/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(os.Getenv("APP_ENV")).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	for _, run := range app.background {
		go func(run func(context.Context) error) {
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker stopped", "error", err)
				stop()
			}
		}(run)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, app.health, app.handlers)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type outboxStore interface {
	appoutbox.Outbox
	infraoutbox.Store
}

// backend is the storage-mode specific half of the wiring.
type backend struct {
	factory     uow.UoWFactory
	outbox      outboxStore
	idempotency middleware.IdempotencyStore
	inbox       notifications.Inbox
	users       domainuser.Repository
	challenges  auth.ChallengeStore
	producer    infraoutbox.Producer
	checks      map[string]obs.Check
	// subscribe hooks the notification handler to the event stream.
	subscribe func(h *notifications.Handler) (func(context.Context) error, error)
	closers   []func(context.Context) error
}

type application struct {
	handlers   ginserver.Handlers
	health     obs.HealthHandlers
	background []func(context.Context) error
	closers    []func(context.Context) error
}

func (a application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		be  backend
		err error
	)
	switch cfg.StorageMode {
	case config.StorageMongo:
		be, err = mongoBackend(ctx, cfg, logger)
	default:
		be = memoryBackend(cfg)
	}
	if err != nil {
		return application{}, err
	}

	photos, photoCheck := photoStorage(cfg, logger)
	if photoCheck != nil {
		be.checks["s3"] = photoCheck
	}

	checker := availability.Checker{Policy: cfg.EmptyWindows}
	encoder := appoutbox.JSONEventEncoder{}
	cmdBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()

	propertyapp.Register(cmdBus, queryBus,
		&propertyapp.Handler{
			UoWFactory: be.factory,
			Outbox:     be.outbox,
			Encoder:    encoder,
			Photos:     photos,
			Currency:   cfg.Currency,
			NewID:      uuid.NewString,
			Logger:     logger,
		},
		&propertyapp.QueryHandler{UoWFactory: be.factory, EmptyWindows: cfg.EmptyWindows},
	)
	bookingapp.Handlers{
		Request:   &bookingapp.RequestBookingHandler{UoWFactory: be.factory, Outbox: be.outbox, Encoder: encoder, Checker: checker, Logger: logger},
		Quote:     &bookingapp.QuoteStayHandler{UoWFactory: be.factory, Checker: checker},
		Lifecycle: &bookingapp.LifecycleHandler{UoWFactory: be.factory, Outbox: be.outbox, Encoder: encoder, Logger: logger},
		List:      &bookingapp.ListHandler{UoWFactory: be.factory},
	}.Register(cmdBus, queryBus)

	validator := validation.New()
	commandBus := middleware.ChainCommands(cmdBus,
		middleware.Logging(logger),
		middleware.Validation(validator),
		middleware.Authorization(policies.RoleAuthorizer{}),
		middleware.Idempotency(be.idempotency, middleware.JSONResultCodec{}),
		middleware.Transaction(be.factory, nil),
		middleware.OutboxFlush(be.outbox),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryValidation(validator),
		middleware.QueryAuthorization(policies.RoleAuthorizer{}),
	)

	mailer := notify.LogNotifier{Logger: logger, Redact: !cfg.IsDev()}
	authService := &authsvc.Service{
		Users:      be.users,
		Challenges: be.challenges,
		Hasher:     security.BcryptHasher{Cost: bcrypt.DefaultCost},
		Codes:      security.DigitCodeGenerator{Digits: 6},
		Tokens:     security.JWTIssuer{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer, TTL: cfg.JWTTTL},
		Notifier:   mailer,
		CodeTTL:    cfg.OTPTTL,
		Logger:     logger,
	}

	worker := &infraoutbox.Worker{
		Store:       be.outbox,
		Producer:    be.producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	consume, err := be.subscribe(&notifications.Handler{
		Inbox:    be.inbox,
		Notifier: mailer,
		Users:    be.users,
		Logger:   logger,
	})
	if err != nil {
		return application{}, err
	}

	return application{
		handlers: ginserver.Handlers{
			Auth:           ginserver.AuthHandler{Service: authService, Logger: logger},
			Properties:     ginserver.PropertyHandler{Commands: commandBus, Queries: queryBusWithMiddleware, Logger: logger},
			Bookings:       ginserver.BookingHandler{Commands: commandBus, Queries: queryBusWithMiddleware, Logger: logger},
			AuthMiddleware: ginserver.AuthMiddleware{Resolver: authService, Logger: logger}.Handle,
		},
		health:     obs.HealthHandlers{Checks: be.checks},
		background: []func(context.Context) error{worker.Run, consume},
		closers:    be.closers,
	}, nil
}

func memoryBackend(cfg config.Config) backend {
	store := memory.NewStore()
	box := memory.NewOutbox()
	broker := memory.NewBroker()
	topic := infraoutbox.TopicFor(cfg.KafkaTopicPrefix, "booking")
	return backend{
		factory:     memory.Factory{Store: store},
		outbox:      box,
		idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
		inbox:       memory.NewInbox(),
		users:       memory.NewUserRepository(),
		challenges:  memory.NewChallengeStore(),
		producer:    broker,
		checks:      map[string]obs.Check{},
		subscribe: func(h *notifications.Handler) (func(context.Context) error, error) {
			broker.Subscribe(topic, func(ctx context.Context, payload []byte) error {
				env, err := notifications.DecodeEnvelope(payload)
				if err != nil {
					return err
				}
				return h.Handle(ctx, env)
			})
			return func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}, nil
		},
	}
}

func mongoBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, error) {
	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return backend{}, err
	}
	be := backend{closers: []func(context.Context) error{client.Close}}
	if err := client.EnsureIndexes(ctx, cfg.IdempotencyTTL); err != nil {
		return be, err
	}
	box, err := infraoutbox.NewMongoStore(ctx, client.DB)
	if err != nil {
		return be, err
	}
	inboxStore, err := inbox.NewStore(ctx, client.DB, cfg.KafkaGroup)
	if err != nil {
		return be, err
	}

	rdb := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	be.closers = append(be.closers, func(context.Context) error { return rdb.Close() })
	challenges := redisstore.NewChallengeStore(rdb)

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return be, err
	}
	be.closers = append(be.closers, func(context.Context) error { return producer.Close() })

	be.factory = mongodb.Factory{
		DB:           client.DB,
		PropertyRepo: mongodb.NewPropertyRepository(client.DB),
		BookingRepo:  mongodb.NewBookingRepository(client.DB),
	}
	be.outbox = box
	be.idempotency = mongodb.NewIdempotencyStore(client.DB)
	be.inbox = inboxStore
	be.users = mongodb.NewUserRepository(client.DB)
	be.challenges = challenges
	be.producer = producer
	be.checks = map[string]obs.Check{
		"mongo": client.Ping,
		"redis": challenges.Ping,
	}
	be.subscribe = func(h *notifications.Handler) (func(context.Context) error, error) {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, nil, kafka.EventHandler{Notifications: h}, logger)
		if err != nil {
			return nil, err
		}
		consumer.Backoff = cfg.RetryBackoff
		topics := []string{infraoutbox.TopicFor(cfg.KafkaTopicPrefix, "booking")}
		return func(ctx context.Context) error {
			defer consumer.Close()
			return consumer.Run(ctx, topics)
		}, nil
	}
	return be, nil
}

// photoStorage falls back to a storage that reports itself unavailable when no S3
// endpoint is configured, so the rest of the API still serves.
func photoStorage(cfg config.Config, logger *slog.Logger) (policies.PhotoStorage, obs.Check) {
	if cfg.S3Endpoint == "" {
		logger.Warn("S3_ENDPOINT not set, photo uploads disabled")
		return s3.Unavailable{}, nil
	}
	client, err := s3.NewClient(s3.Options{
		Endpoint:       cfg.S3Endpoint,
		UseSSL:         cfg.S3UseSSL,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		PublicEndpoint: cfg.S3PublicEndpoint,
		Logger:         logger,
	})
	if err != nil {
		logger.Warn("photo storage unavailable", "error", err)
		return s3.Unavailable{}, nil
	}
	return client, client.Ping
}
