package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/flick-backend/internal/apperror"
	"github.com/iliyamo/flick-backend/internal/blob"
	"github.com/iliyamo/flick-backend/internal/config"
	"github.com/iliyamo/flick-backend/internal/database"
	"github.com/iliyamo/flick-backend/internal/handler"
	"github.com/iliyamo/flick-backend/internal/logging"
	"github.com/iliyamo/flick-backend/internal/media"
	"github.com/iliyamo/flick-backend/internal/metrics"
	"github.com/iliyamo/flick-backend/internal/middleware"
	"github.com/iliyamo/flick-backend/internal/queue"
	"github.com/iliyamo/flick-backend/internal/repository"
	"github.com/iliyamo/flick-backend/internal/router"
	"github.com/iliyamo/flick-backend/internal/service"
	"github.com/iliyamo/flick-backend/internal/telemetry"
)

const serviceName = "flick-api"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load() // a missing .env is fine; real deployments use the environment
	cfg := config.Load()
	log := logging.New(serviceName, cfg.LogLevel)

	if err := telemetry.InitSentry(cfg.SentryDSN, serviceName, version, cfg.Env); err != nil {
		log.WithError(err).Warn("sentry disabled")
	}

	err := run(cfg, log)
	telemetry.Flush()
	if err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg config.Config, log *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := database.Open(cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	db := mongoClient.Database(cfg.MongoDatabase)
	idxCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = database.EnsureIndexes(idxCtx, db)
	cancel()
	if err != nil {
		return err
	}
	log.WithField("database", cfg.MongoDatabase).Info("database connected")

	azClient, err := blob.NewAzureClient(cfg.AzureConnString)
	if err != nil {
		return err
	}
	mediaStore := blob.NewAzureStore(azClient, cfg.MediaContainer)
	imageStore := blob.NewAzureStore(azClient, cfg.ImagesContainer)

	var rdb *redis.Client
	if c, err := config.NewRedisClient(); err != nil {
		log.WithError(err).Warn("redis unavailable; response cache off, in-process rate limiting")
	} else {
		rdb = c
		defer func() { _ = rdb.Close() }()
	}
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	var events service.Publisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = &service.AMQPPublisher{URL: cfg.RabbitURL, Log: log}
	}

	movies := repository.NewMovieRepo(db)
	users := repository.NewUserRepo(db)
	watchlist := service.NewWatchlistService(users, events, log)
	uploader := &handler.Uploader{Images: imageStore, Media: mediaStore, Log: log}
	invalidate := func(ctx context.Context) error { return middleware.InvalidateCache(ctx, cacheCfg, rdb) }

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperror.Handler(cfg.Env, log, handler.ErrorRules())
	e.Use(
		metrics.Middleware(),
		logging.Requests(log, middleware.UserID),
		echomw.Recover(),
		echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{cfg.ClientOrigin},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowCredentials: true,
		}),
		middleware.NewTokenBucket(rlCfg, rdb),
	)

	router.RegisterRoutes(e, func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) })
	router.RegisterAPI(e, router.Deps{
		Movies:  handler.NewMovieHandler(movies, uploader, events, invalidate, log, cfg.UploadMaxBytes),
		Streams: handler.NewStreamHandler(media.NewStreamer(mediaStore, cfg.StreamChunk, log)),
		Users:   handler.NewUserHandler(users, watchlist, log),
		Auth:    middleware.Authenticate(cfg.JWTSecret, cfg.SessionCookie, users),
		Cache:   middleware.NewRedisCache(cacheCfg, rdb),
	})

	g, gctx := errgroup.WithContext(ctx)
	addr := ":" + cfg.Port
	g.Go(func() error {
		log.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.EventsEnabled {
		consumer := &queue.Consumer{URL: cfg.RabbitURL, Dir: "logs", Log: log}
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		// close the listener first, then let in-flight requests finish
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
