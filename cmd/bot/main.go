// Package main - точка входа для Telegram-бота ассистента учебной группы.
//
// Бот принимает обычные текстовые сообщения, передаёт их LLM-агенту и
// выполняет вызванные агентом инструменты: проверка статуса студента,
// регистрация по коду из ростера, добавление, просмотр и удаление
// домашних заданий.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries)
// - Infrastructure: реализация репозиториев, внешние API
// - Interface: Telegram Bot, операционный HTTP сервер
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/artemkaplagg/upiontelegram-classbot/config"

	// Application layer
	"github.com/artemkaplagg/upiontelegram-classbot/internal/application/command"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/application/query"

	// Domain layer
	"github.com/artemkaplagg/upiontelegram-classbot/internal/domain/roster"

	// Infrastructure layer
	"github.com/artemkaplagg/upiontelegram-classbot/internal/infrastructure/external/gemini"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/infrastructure/external/telegram"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/infrastructure/persistence/postgres"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/artemkaplagg/upiontelegram-classbot/internal/interface/http"
	tginterface "github.com/artemkaplagg/upiontelegram-classbot/internal/interface/telegram"

	// Core
	"github.com/artemkaplagg/upiontelegram-classbot/internal/agent"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/pipeline"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

func main() {
	// Корневой контекст с возможностью отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log, slogger := setupLoggers(cfg)
	log.Info("starting class assistant bot",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("migrations completed")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ПОДКЛЮЧЕНИЕ К REDIS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to Redis...")
	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	cache, err := redis.NewCache(redisCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer func() {
		log.Info("closing Redis connection...")
		_ = cache.Close()
	}()
	log.Info("Redis connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ЗАГРУЗКА РОСТЕРА И ПРОВИЖЕНИНГ ГРУПП
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("loading class roster...", logger.String("path", cfg.Roster.Path))
	classRoster, err := roster.Load(cfg.Roster.Path)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	log.Info("roster loaded", logger.Int("entries", classRoster.Len()))

	groupRepo := postgres.NewGroupRepository(dbConn)
	for _, name := range classRoster.GroupNames() {
		if _, err := groupRepo.Ensure(ctx, name, ""); err != nil {
			return fmt.Errorf("failed to provision group %q: %w", name, err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ И КЕШЕЙ
	// ─────────────────────────────────────────────────────────────────────────
	studentRepo := postgres.NewStudentRepository(dbConn)
	homeworkRepo := postgres.NewHomeworkRepository(dbConn)
	sessionRepo := postgres.NewSessionRepository(dbConn)

	verifyCache := redis.NewVerifyCache(cache, log)
	threadMemory := redis.NewThreadMemory(cache, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	verifyHandler := query.NewVerifyStudentHandler(studentRepo, groupRepo, verifyCache, log)
	registerHandler := command.NewRegisterStudentHandler(classRoster, studentRepo, groupRepo, verifyCache, log)
	addHandler := command.NewAddHomeworkHandler(studentRepo, groupRepo, homeworkRepo, log)
	listHandler := query.NewListHomeworkHandler(studentRepo, groupRepo, homeworkRepo, log)
	deleteHandler := command.NewDeleteHomeworkHandler(studentRepo, homeworkRepo, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ИНИЦИАЛИЗАЦИЯ LLM-АГЕНТА
	// ─────────────────────────────────────────────────────────────────────────
	geminiCfg := gemini.DefaultConfig(cfg.Gemini.APIKey)
	if cfg.Gemini.BaseURL != "" {
		geminiCfg.BaseURL = cfg.Gemini.BaseURL
	}
	if cfg.Gemini.Model != "" {
		geminiCfg.Model = cfg.Gemini.Model
	}
	geminiCfg.Timeout = cfg.Gemini.RequestTimeout
	geminiCfg.MaxOutputTokens = cfg.Gemini.MaxOutputTokens
	geminiCfg.Temperature = cfg.Gemini.Temperature
	llm := gemini.NewClient(geminiCfg, log)

	dispatcher := agent.NewDispatcher(verifyHandler, registerHandler, addHandler, listHandler, deleteHandler, log)
	assistant := agent.New(llm, dispatcher, threadMemory, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. СОЗДАНИЕ TELEGRAM BOT
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing Telegram bot...")

	clientCfg := telegram.DefaultClientConfig(cfg.Telegram.Token)
	clientCfg.Timeout = cfg.Telegram.RequestTimeout
	clientCfg.Logger = slogger
	tgClient := telegram.NewClient(clientCfg)

	pl := pipeline.New(sessionRepo, assistant, tginterface.NewReplySender(tgClient), log)

	botCfg := tginterface.DefaultBotConfig()
	botCfg.MaxConcurrentUpdates = cfg.Telegram.MaxConcurrentUpdates
	bot := tginterface.NewBot(botCfg, tgClient, pl, slogger)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpServer := httpserver.NewServer(httpCfg, map[string]httpserver.Pinger{
		"postgres": dbConn,
		"redis":    cache,
	}, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. ЗАПУСК СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 2)

	if cfg.HTTP.Enabled {
		go func() {
			log.Info("starting HTTP server", logger.String("address", httpCfg.Address()))
			if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server error: %w", err)
			}
		}()
	}

	go func() {
		log.Info("starting Telegram bot")
		if err := bot.Start(ctx); err != nil {
			errCh <- fmt.Errorf("telegram bot error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	// Сначала бот: перестаём принимать апдейты и ждём текущие
	log.Info("stopping Telegram bot...")
	if err := bot.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop bot gracefully", logger.Err(err))
		shutdownErr = err
	}

	if cfg.HTTP.Enabled {
		log.Info("stopping HTTP server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop HTTP server gracefully", logger.Err(err))
			shutdownErr = err
		}
	}

	// База и Redis закроются через defer

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
	} else {
		log.Info("shutdown completed successfully")
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLoggers настраивает структурированное логирование. Бот и Telegram
// клиент используют slog, остальные слои - pkg/logger.
func setupLoggers(cfg *config.Config) (*logger.Logger, *slog.Logger) {
	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		level = logger.LevelDebug
	}

	opts := logger.DefaultOptions()
	opts.Level = level
	log := logger.New(opts)

	slogOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if level == logger.LevelDebug {
		slogOpts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, slogOpts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, slogOpts)
	}

	slogger := slog.New(handler)
	slog.SetDefault(slogger)

	return log, slogger
}
