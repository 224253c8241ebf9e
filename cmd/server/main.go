package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/directory"
	"github.com/jrsteele09/go-session-auth/federation"
	"github.com/jrsteele09/go-session-auth/federation/flowrepo"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/jrsteele09/go-session-auth/server"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/store"
	"github.com/jrsteele09/go-session-auth/store/pgstore"
	"github.com/jrsteele09/go-session-auth/tenants"
	tenantrepofakes "github.com/jrsteele09/go-session-auth/tenants/repofakes"
	"github.com/jrsteele09/go-session-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-session-auth/users/repofake"
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

	ctx := context.Background()
	userRepo, tenantRepo, closeRepos, err := openRepos(ctx, c)
	if err != nil {
		return err
	}
	defer closeRepos()

	handler, err := buildServer(ctx, c, userRepo, tenantRepo)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if c.GetEnv() == config.DevelopmentEnvVal {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openRepos connects to Postgres when DATABASE_URL is set, otherwise loads the
// YAML seed into in-memory repositories.
func openRepos(ctx context.Context, c config.Config) (users.UserRepo, tenants.Repo, func(), error) {
	if dsn := c.GetDatabaseURL(); dsn != "" {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("[openRepos] sql.Open: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("[openRepos] ping: %w", err)
		}
		userRepo, tenantRepo := pgstore.Open(db)
		log.Info().Msg("Using PostgreSQL repositories")
		return userRepo, tenantRepo, func() { _ = db.Close() }, nil
	}

	userRepo := fakeuserrepo.NewFakeUserRepo()
	tenantRepo := tenantrepofakes.NewFakeTenantRepo()
	seedFile := c.GetTenantsFile()
	seed, err := store.LoadSeedFile(seedFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Warn().Str("file", seedFile).Msg("No seed file, starting with empty in-memory repositories")
	case err != nil:
		return nil, nil, nil, err
	default:
		if err := seed.Apply(ctx, userRepo, tenantRepo); err != nil {
			return nil, nil, nil, err
		}
		log.Info().Str("file", seedFile).Int("tenants", len(seed.Tenants)).Int("accounts", len(seed.Accounts)).Msg("Seeded in-memory repositories")
	}
	return userRepo, tenantRepo, func() {}, nil
}

func buildServer(ctx context.Context, c config.Config, userRepo users.UserRepo, tenantRepo tenants.Repo) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	gateway, err := store.NewRepoGateway(userRepo, tenantRepo)
	if err != nil {
		return nil, err
	}

	strategies := auth.DefaultStrategies()
	strategies.DirectoryTimeout = c.GetDirectoryTimeout()
	authService, err := auth.NewService(gateway,
		auth.WithStrategies(strategies),
		auth.WithDirectoryVerifier(directory.New()),
		auth.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	manager, err := sessions.NewManager(gateway,
		sessions.WithActivator(sessions.RepoActivator(userRepo)),
		sessions.WithLoginRecorder(userRepo),
		sessions.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	key, ephemeral, err := config.ResolveSigningKey(c)
	if err != nil {
		return nil, err
	}
	if ephemeral {
		log.Warn().Msg("SESSION_SIGNING_KEY not set, using an ephemeral key")
	}
	codec, err := sessions.NewCodec(key, c.GetMaxSessionAge())
	if err != nil {
		return nil, err
	}

	providers, err := federation.NewProviders(
		flowrepo.NewInMemoryRepo(c.GetFlowTTL()),
		federation.WithCallbackURL(c.GetFederatedCallbackURL()),
	)
	if err != nil {
		return nil, err
	}
	if _, err := providers.CheckTenants(ctx, tenantRepo); err != nil {
		return nil, err
	}

	return server.New(c, server.Deps{
		Auth:       authService,
		Sessions:   manager,
		Codec:      codec,
		Federation: providers,
		Tenants:    tenantRepo,
		Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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
