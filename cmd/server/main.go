package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-session/api"
	"github.com/jrsteele09/go-auth-session/broadcast"
	"github.com/jrsteele09/go-auth-session/broadcast/membus"
	"github.com/jrsteele09/go-auth-session/broadcast/redisbus"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/server"
	"github.com/jrsteele09/go-auth-session/server/authflowrepo"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/session/filestore"
	"github.com/jrsteele09/go-auth-session/session/redisstore"
	"github.com/jrsteele09/go-auth-session/session/repofake"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	refreshInterval = 30 * time.Second
	refreshWindow   = 2 * time.Minute
	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if c.GetSessionStore() == "redis" || c.GetSyncBus() == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", c.GetRedisAddr(), err)
		}
	}

	repo, err := newSessionRepo(c, rdb)
	if err != nil {
		return err
	}
	bus, err := newBus(c, rdb)
	if err != nil {
		return err
	}

	backend := api.New(c.GetBackendURL(),
		api.WithTimeout(c.GetBackendTimeout()),
		api.WithRetryCount(c.GetBackendRetryCount()),
	)
	broadcaster := broadcast.NewBroadcaster(bus)
	store := session.NewStore(
		session.WithRepo(repo),
		session.WithPublisher(broadcaster),
		session.WithTenantSwitcher(backend),
		session.WithTokenRefresher(backend),
		session.WithListener(logSessionEvent),
	)

	if err := store.Restore(ctx); err != nil {
		log.Err(err).Msg("Could not restore the previous session, starting signed out")
	}
	if err := broadcaster.Init(ctx, store.Apply); err != nil {
		return fmt.Errorf("broadcaster.Init: %w", err)
	}
	defer broadcaster.Close()

	handler, err := server.New(c, store, backend, authflowrepo.NewInMemoryRepo())
	if err != nil {
		return err
	}
	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listenAndServe(httpServer)
	})
	g.Go(func() error {
		return store.KeepFresh(gctx, refreshInterval, refreshWindow)
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(httpServer)
	})
	return g.Wait()
}

func newSessionRepo(c config.Config, rdb *redis.Client) (session.Repo, error) {
	switch kind := c.GetSessionStore(); kind {
	case "memory":
		return repofake.NewFakeSessionRepo(), nil
	case "file":
		var opts []filestore.Option
		if key := c.GetSessionStoreKey(); key != "" {
			opts = append(opts, filestore.WithSealKey(key))
		}
		return filestore.New(c.GetDataFolder(), opts...)
	case "redis":
		return redisstore.New(rdb, c.GetAppName(), 0), nil
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q", kind)
	}
}

func newBus(c config.Config, rdb *redis.Client) (broadcast.Bus, error) {
	switch kind := c.GetSyncBus(); kind {
	case "memory":
		return membus.New(), nil
	case "redis":
		return redisbus.New(rdb, c.GetAppName()), nil
	default:
		return nil, fmt.Errorf("unknown SYNC_BUS %q", kind)
	}
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func logSessionEvent(e session.Event) {
	log.Debug().Str("event", string(e.Kind)).Bool("remote", e.Remote).Msg("session changed")
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
