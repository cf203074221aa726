package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	apiPkg "github.com/kaidi-io/kaidibot/internal/api"
	"github.com/kaidi-io/kaidibot/internal/chat"
	"github.com/kaidi-io/kaidibot/internal/command"
	"github.com/kaidi-io/kaidibot/internal/config"
	"github.com/kaidi-io/kaidibot/internal/lark"
	"github.com/kaidi-io/kaidibot/internal/logbuf"
	"github.com/kaidi-io/kaidibot/internal/metrics"
	"github.com/kaidi-io/kaidibot/internal/order"
	"github.com/kaidi-io/kaidibot/internal/provider"
	"github.com/kaidi-io/kaidibot/internal/scheduler"
	"github.com/kaidi-io/kaidibot/internal/store"
	"github.com/kaidi-io/kaidibot/internal/webhook"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	// Load config (file or env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("kaidibotd starting", "bot", cfg.Bot.Name)

	// 1. Provider
	var prov provider.Provider
	switch cfg.Provider.Type {
	case "anthropic":
		var opts []provider.AnthropicOption
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, provider.WithAnthropicBaseURL(cfg.Provider.BaseURL))
		}
		if cfg.Provider.Model != "" {
			opts = append(opts, provider.WithAnthropicModel(cfg.Provider.Model))
		}
		prov = provider.NewAnthropic(cfg.Provider.APIKey, opts...)
	default: // "openai" or empty
		var opts []provider.OpenAIOption
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, provider.WithBaseURL(cfg.Provider.BaseURL))
		}
		if cfg.Provider.Model != "" {
			opts = append(opts, provider.WithModel(cfg.Provider.Model))
		}
		prov = provider.NewOpenAI(cfg.Provider.APIKey, opts...)
	}
	logger.Info("provider initialized", "type", prov.Name(), "model", cfg.Provider.Model)

	// 2. Store
	os.MkdirAll(cfg.Bot.DataDir, 0o755)
	dbPath := filepath.Join(cfg.Bot.DataDir, "kaidibot.db")
	st, err := store.NewSQLite(dbPath)
	if err != nil {
		logger.Error("failed to open store", "path", dbPath, "error", err)
		os.Exit(1)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Platform client and core services
	bot := lark.New(cfg.Bot.AppID, cfg.Bot.AppSecret)

	mets := metrics.New(nil)

	responder := chat.NewResponder(st, prov, bot,
		chat.WithFlushInterval(cfg.Chat.FlushInterval()),
		chat.WithMaxStreamDuration(cfg.Chat.MaxStreamDuration()),
		chat.WithLogger(logger.With("component", "chat")),
	)

	manager := order.NewManager(st, bot, cfg.Order.Assistant,
		order.WithGrace(cfg.Order.Grace()),
		order.WithLogger(logger.With("component", "order")),
	)

	// 4. Command routing on a bounded worker pool
	pool := command.NewPool(cfg.Workers, cfg.Workers*4, logger.With("component", "pool"))
	defer pool.Close()

	router, err := command.NewRouter(cfg.Bot.Name, pool, bot, logger.With("component", "router"))
	if err != nil {
		logger.Error("invalid bot name pattern", "name", cfg.Bot.Name, "error", err)
		os.Exit(1)
	}
	for _, spec := range command.P2PSpecs(bot, st, manager, command.NewReader()) {
		router.RegisterP2P(spec)
	}
	for _, spec := range command.GroupSpecs(bot, manager) {
		router.RegisterGroup(spec)
	}
	router.SetFallback(command.ChatFallback(responder))

	// 5. Sweep scheduler
	sched := scheduler.New(logger.With("component", "scheduler"))
	err = sched.AddJob("check_order", cfg.Order.Schedule(), func() {
		nudged, err := manager.Check(ctx, time.Now())
		if err != nil {
			logger.Error("order sweep failed", "error", err)
			return
		}
		mets.SweepNudgesTotal.Add(float64(nudged))
	})
	if err != nil {
		logger.Error("invalid sweep schedule", "schedule", cfg.Order.Schedule(), "error", err)
		os.Exit(1)
	}
	go safeGo(logger, "scheduler", func() { sched.Start(ctx) })

	// 6. Webhook server
	hook, err := webhook.New(webhook.Config{
		BotName:           cfg.Bot.Name,
		VerificationToken: cfg.Bot.VerificationToken,
		EncryptKey:        cfg.Bot.EncryptKey,
		Router:            router,
		Orders:            manager,
		Bot:               bot,
		Runner:            pool,
		Metrics:           mets,
		Logger:            logger.With("component", "webhook"),
	})
	if err != nil {
		logger.Error("failed to init webhook handler", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	hook.Routes(mux)
	hookSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go safeGo(logger, "webhook-server", func() {
		logger.Info("webhook server starting", "addr", hookSrv.Addr)
		if err := hookSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("webhook server failed", "error", err)
		}
	})

	// 7. Admin API server
	apiSrv := apiPkg.NewServer(st, st, apiPkg.Config{
		Host: cfg.Admin.Host,
		Port: cfg.Admin.Port,
		Key:  cfg.Admin.Key,
	}, logger.With("component", "api"), logBuf)
	go safeGo(logger, "api-server", func() { apiSrv.Start(ctx) })
	logger.Info("api server started", "port", cfg.Admin.Port)

	// 8. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	hookSrv.Shutdown(shutCtx)
	cancel()
	logger.Info("kaidibotd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
