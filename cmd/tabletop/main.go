// Package main provides the tabletop server: the JSON API, the research
// workers, and the optional Telnet Risk table console.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/api"
	"github.com/cory-johannsen/tabletop/internal/chat"
	"github.com/cory-johannsen/tabletop/internal/config"
	"github.com/cory-johannsen/tabletop/internal/frontend/handlers"
	"github.com/cory-johannsen/tabletop/internal/frontend/telnet"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
	"github.com/cory-johannsen/tabletop/internal/game/risk"
	"github.com/cory-johannsen/tabletop/internal/observability"
	"github.com/cory-johannsen/tabletop/internal/realtime"
	"github.com/cory-johannsen/tabletop/internal/research"
	"github.com/cory-johannsen/tabletop/internal/server"
	"github.com/cory-johannsen/tabletop/internal/storage/memory"
	"github.com/cory-johannsen/tabletop/internal/storage/postgres"
	"github.com/cory-johannsen/tabletop/internal/todo"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "tabletop")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting tabletop",
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.String("backend", cfg.Database.Backend),
	)

	ctx := context.Background()
	lifecycle := server.NewLifecycle(logger)

	// Storage
	var (
		messageStore chat.Store
		todoStore    todo.Store
		health       api.HealthChecker
	)
	switch cfg.Database.Backend {
	case config.BackendMemory:
		ms := memory.NewMessageStore()
		messageStore, todoStore, health = ms, memory.NewTodoStore(), ms
		logger.Warn("using in-memory storage; data is lost on exit")
	default:
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database, cfg.Research.Workers)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		if err := pool.Health(ctx, 5*time.Second); err != nil {
			logger.Fatal("database not ready", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
			zap.Int32("max_conns", pool.DB().Config().MaxConns),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		messageStore = postgres.NewMessageRepository(pool.DB())
		todoStore = postgres.NewTodoRepository(pool.DB())
		health = pool

		lifecycle.Add("postgres", &server.ContextService{
			Run: func(ctx context.Context) error {
				defer pool.Close()
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
						if err := pool.Health(ctx, 5*time.Second); err != nil {
							logger.Warn("database health check failed", zap.Error(err))
						}
					}
				}
			},
		})
	}

	// Risk interpreter and message logs
	diceSrc := dice.NewSource()
	if cfg.Game.DiceSeed != 0 {
		diceSrc = dice.NewRandSource(cfg.Game.DiceSeed)
	}
	interp := risk.NewInterpreter(diceSrc, logger.Named("risk"))
	messages := chat.NewService(messageStore, interp, logger.Named("chat"))

	// Todos and background research
	todos := todo.NewService(todoStore, nil, logger.Named("todo"))

	tavily := research.NewClient(cfg.Research.APIKey,
		research.WithBaseURL(cfg.Research.BaseURL),
		research.WithMaxResults(cfg.Research.MaxResults),
		research.WithSearchDepth(cfg.Research.SearchDepth),
		research.WithHTTPClient(&http.Client{Timeout: cfg.Research.Timeout}),
	)
	if !tavily.Configured() {
		logger.Warn("TAVILY_API_KEY not set, research will return mock data")
	}
	researchLogger := logger.Named("research")
	researcher := research.NewResearcher(tavily, researchLogger)

	scheduler := research.NewScheduler(researcher,
		func(ctx context.Context, todoID string, r research.Report) error {
			_, err := todos.UpdateResearchData(ctx, todoID, r)
			return err
		},
		cfg.Research.QueueSize,
		researchLogger,
		research.WithWorkers(cfg.Research.Workers),
		research.WithNotifier(researchNotifier(messages, researchLogger)),
	)
	todos.AttachResearchQueue(scheduler)
	lifecycle.Add("research", &server.ContextService{Run: scheduler.Run})

	// Realtime agent
	minter := realtime.NewTokenMinter(cfg.Realtime.BaseURL, cfg.Realtime.APIKey, cfg.Realtime.Model, cfg.Realtime.Timeout)
	tools := realtime.NewTools(todos, messages, logger.Named("realtime"))

	// HTTP API
	handler := api.NewServer(api.Deps{
		Messages:   messages,
		Todos:      todos,
		Risk:       interp,
		Researcher: researcher,
		Tokens:     minter,
		Tools:      tools,
		Health:     health,
	}, logger.Named("api"))
	lifecycle.Add("http", &server.HTTPService{
		Server: &http.Server{
			Addr:         cfg.HTTP.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	// Telnet Risk table console
	if cfg.Telnet.Enabled {
		acceptor := telnet.NewAcceptor(cfg.Telnet, handlers.NewRiskTableHandler(messages, logger.Named("telnet")), logger.Named("telnet"))
		lifecycle.Add("telnet", acceptor)
	}

	logger.Info("tabletop initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.Bool("telnet", cfg.Telnet.Enabled),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
