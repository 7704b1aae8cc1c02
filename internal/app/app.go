package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/copycats/copycat-api/internal/airtable"
	"github.com/copycats/copycat-api/internal/auth"
	"github.com/copycats/copycat-api/internal/auth/jwt"
	"github.com/copycats/copycat-api/internal/config"
	"github.com/copycats/copycat-api/internal/db/repository"
	"github.com/copycats/copycat-api/internal/generator"
	"github.com/copycats/copycat-api/internal/logging"
	"github.com/copycats/copycat-api/internal/maintenance"
	"github.com/copycats/copycat-api/internal/question"
	"github.com/copycats/copycat-api/internal/server"
)

// Application aggregates shared infrastructure (backend client, cache,
// generation log, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool   *pgxpool.Pool
	redis  *redis.Client
	http   *http.Server
	warmer *question.IndexWarmer
}

// New bootstraps the logger, Airtable client, optional Redis and Postgres,
// the LLM providers and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	client := NewAirtableClient(cfg, logger)
	deps := []server.Dependency{{
		Name: "airtable",
		Ping: func(ctx context.Context) error { return client.Ping(ctx, cfg.Airtable.QuestionsTable) },
	}}

	matcher, err := question.NewMatcher(cfg.Clones.MatchStrategy)
	if err != nil {
		return nil, err
	}

	var (
		cache       question.Cache
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		cache = question.NewRedisCache(redisClient, cfg.Redis.TTL)
		deps = append(deps, server.Dependency{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	} else {
		logger.Warn().Msg("REDIS_ADDR not set; read cache disabled")
	}

	var (
		pool        *pgxpool.Pool
		generations *repository.GenerationRepository
	)
	if cfg.Postgres.Host != "" {
		pool, err = pgxpool.New(ctx, cfg.Postgres.DSN()+" pool_max_conns=10")
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := repository.NewPGStore(pool)
		generations = repository.NewGenerationRepository(store)
		deps = append(deps, server.Dependency{Name: "postgres", Ping: store.Ping})
	} else {
		logger.Warn().Msg("PG_HOST not set; generation log disabled")
	}

	repo := question.NewRepository(client, cfg.Airtable.QuestionsTable, cfg.Airtable.ClonesTable)
	questionSvc := question.NewService(repo, question.ServiceOptions{
		Matcher: matcher,
		Cache:   cache,
	}, logger)
	logger.Info().Str("strategy", matcher.Strategy()).Msg("clone matcher selected")

	var warmer *question.IndexWarmer
	if cache != nil {
		warmer = question.NewIndexWarmer(questionSvc, cfg.Redis.WarmInterval, logger.With().Str("component", "index_warmer").Logger())
	}

	llmHTTP := &http.Client{Timeout: cfg.AI.HTTPTimeout}
	openAI := generator.NewProvider("openai", cfg.AI.OpenAIBaseURL, cfg.AI.OpenAIKey, cfg.AI.CloneModel, llmHTTP)
	providers := generator.Providers{
		Clone:    openAI,
		Hint:     openAI.WithModel(cfg.AI.HintModel),
		GPT4:     openAI.WithModel(cfg.AI.HintModel),
		DeepSeek: generator.NewProvider("deepseek", cfg.AI.DeepSeekBaseURL, cfg.AI.DeepSeekKey, cfg.AI.DeepSeekModel, llmHTTP),
		Claude:   generator.NewProvider("anthropic", cfg.AI.AnthropicURL, cfg.AI.AnthropicKey, cfg.AI.AnthropicModel, llmHTTP),
	}
	if openAI == nil {
		logger.Warn().Msg("OPENAI_API_KEY not set; clone generation and hints disabled")
	}

	// A nil *GenerationRepository must not become a non-nil interface.
	var genLog generator.GenerationLog
	var genList server.GenerationLister
	if generations != nil {
		genLog = generations
		genList = generations
	}
	generatorSvc := generator.NewService(questionSvc, providers, genLog, logger)

	tokens := NewTokenManager(cfg)
	if cfg.Security.AdminJWTSecret == "" {
		logger.Warn().Msg("ADMIN_JWT_SECRET not set; admin routes will reject every request")
	}

	runner := maintenance.NewRunner(client, maintenance.Options{
		QuestionsTable: cfg.Airtable.QuestionsTable,
		ClonesTable:    cfg.Airtable.ClonesTable,
	}, logger)

	apiServer := server.NewHTTPServer(cfg, logger, server.Routes{
		Questions:    question.NewHTTPHandler(questionSvc, logger),
		Generator:    generator.NewHTTPHandler(generatorSvc, logger),
		Admin:        server.NewAdminHandler(runner, genList, logger),
		RequireAdmin: auth.RequireAdmin(tokens, logger),
		Dependencies: deps,
	})

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		http:   apiServer,
		warmer: warmer,
	}, nil
}

// NewAirtableClient builds the backend client from config.
func NewAirtableClient(cfg *config.App, logger zerolog.Logger) *airtable.Client {
	return airtable.NewClient(airtable.Config{
		APIKey:            cfg.Airtable.APIKey,
		BaseID:            cfg.Airtable.BaseID,
		BaseURL:           cfg.Airtable.BaseURL,
		RequestsPerSecond: cfg.Airtable.RequestsPerSecond,
		Timeout:           cfg.Airtable.Timeout,
	}, nil, logger)
}

// NewTokenManager builds the admin token manager from config.
func NewTokenManager(cfg *config.App) *jwt.Manager {
	return jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.AdminJWTSecret),
		TTL:    cfg.Security.AdminTokenTTL,
		Issuer: cfg.Name,
	})
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	if a.warmer != nil {
		go a.warmer.Run()
	}

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	if a.warmer != nil {
		a.warmer.Stop()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}
