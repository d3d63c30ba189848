// Command api runs the cloudplayer identity service: OAuth2 provider
// linking, stateless session identities and cross-device claim tokens.
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

	"golang.org/x/sync/errgroup"

	"github.com/cloudplayer/identity/internal/auth"
	"github.com/cloudplayer/identity/internal/claimtoken"
	"github.com/cloudplayer/identity/internal/config"
	"github.com/cloudplayer/identity/internal/httpapi"
	"github.com/cloudplayer/identity/internal/janitor"
	"github.com/cloudplayer/identity/internal/store/pg"
	"github.com/cloudplayer/identity/pkg/cache"
	"github.com/cloudplayer/identity/pkg/cookie"
	"github.com/cloudplayer/identity/pkg/db"
	"github.com/cloudplayer/identity/pkg/health"
	"github.com/cloudplayer/identity/pkg/logger"
	"github.com/cloudplayer/identity/pkg/oauthflow"
	redisconn "github.com/cloudplayer/identity/pkg/redis"
	"github.com/cloudplayer/identity/pkg/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.NewWithSentry(cfg.Sentry).With(slog.String("app", "identity"))

	if err := run(cfg, log); err != nil {
		log.Error("service exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, pg.Migrations, "migrations", log); err != nil {
		return err
	}
	st := pg.New(pool)

	checks := health.Checks{"postgres": db.Healthcheck(pool)}

	// Claim tokens live in Redis when configured so they survive
	// restarts and are shared between replicas; a single instance can
	// run on process memory.
	var tokenCache cache.Cache[claimtoken.Record]
	if cfg.RedisURL != "" {
		client, err := redisconn.Open(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		checks["redis"] = redisconn.Healthcheck(client)
		tokenCache = cache.NewRedis[claimtoken.Record](client,
			cache.WithPrefix("claimtoken"),
			cache.WithRedisDefaultTTL(cfg.ClaimTokenTTL))
	} else {
		mem := cache.NewMemory[claimtoken.Record](cache.WithDefaultTTL(cfg.ClaimTokenTTL))
		defer mem.Close()
		tokenCache = mem
	}

	providers, err := cfg.Providers()
	if err != nil {
		return err
	}

	codec, err := session.NewCodec(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}

	exchanger := oauthflow.New(
		oauthflow.WithReferer(cfg.Referer),
		oauthflow.WithTimeout(cfg.ProviderTimeout),
	)

	handler := httpapi.New(httpapi.Config{
		Log:          log,
		Providers:    providers,
		Linker:       auth.NewLinker(providers, exchanger, st, log),
		Bootstrap:    auth.NewBootstrap(st),
		Tokens:       claimtoken.New(tokenCache, cfg.ClaimTokenTTL),
		Codec:        codec,
		Cookies:      cookie.New(cookie.WithSecure(cfg.CookieSecure)),
		CookieName:   cfg.SessionCookie,
		CookieTTL:    cfg.SessionTTL,
		BaseURL:      cfg.BaseURL,
		LandingURL:   cfg.LandingURL,
		HealthChecks: checks,
	})

	jan := janitor.New(st, cfg.AnonymousMaxAge, log)
	if err := jan.Start(cfg.JanitorSchedule); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server",
			slog.String("addr", cfg.Addr),
			slog.Any("providers", providers.IDs()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := jan.Stop(shutdownCtx); err != nil {
			log.Warn("janitor shutdown", slog.String("error", err.Error()))
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
