// Package telegram implements the bot's Telegram-facing interface:
// long polling, update routing and the static command replies.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/infrastructure/external/telegram"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/pipeline"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig contains bot runtime configuration.
type BotConfig struct {
	// MaxConcurrentUpdates caps the number of updates handled in parallel.
	MaxConcurrentUpdates int

	// GracefulShutdownTimeout bounds how long Stop waits for in-flight
	// handlers.
	GracefulShutdownTimeout time.Duration
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		MaxConcurrentUpdates:    16,
		GracefulShutdownTimeout: 10 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STATIC REPLIES
// ══════════════════════════════════════════════════════════════════════════════

const startMessage = `Привет! Я бот-ассистент вашей группы.

Я помогаю с домашними заданиями: узнать что задали, добавить новое
задание, удалить устаревшее. Просто напишите мне, что нужно.

Если вы здесь впервые, пришлите свой студенческий код, и я вас
зарегистрирую.`

const helpMessage = `Что я умею:

• "что задали?" - показать домашние задания вашей группы
• "добавь дз по матану на пятницу: ..." - добавить задание (для старост)
• "удали задание ..." - удалить задание (для старост)
• "зарегистрируй меня, мой код st2024015" - регистрация по коду

Я понимаю обычные сообщения, специальные команды не нужны.`

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot receives Telegram updates and feeds private text messages into
// the processing pipeline.
type Bot struct {
	config   BotConfig
	client   *telegram.Client
	pipeline *pipeline.Pipeline
	logger   *slog.Logger

	updateSem chan struct{}
	wg        sync.WaitGroup

	running   bool
	runningMu sync.RWMutex
}

// NewBot creates a bot over an API client and a message pipeline.
func NewBot(config BotConfig, client *telegram.Client, pl *pipeline.Pipeline, logger *slog.Logger) *Bot {
	if config.MaxConcurrentUpdates <= 0 {
		config.MaxConcurrentUpdates = DefaultBotConfig().MaxConcurrentUpdates
	}
	if config.GracefulShutdownTimeout <= 0 {
		config.GracefulShutdownTimeout = DefaultBotConfig().GracefulShutdownTimeout
	}

	return &Bot{
		config:    config,
		client:    client,
		pipeline:  pl,
		logger:    logger,
		updateSem: make(chan struct{}, config.MaxConcurrentUpdates),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE MANAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Start verifies the token and begins long polling. Blocks until the
// context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.runningMu.Lock()
	if b.running {
		b.runningMu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.runningMu.Unlock()

	if err := b.verifyToken(ctx); err != nil {
		return fmt.Errorf("failed to verify bot token: %w", err)
	}

	return b.client.StartPolling(ctx, func(ctx context.Context, update *telegram.Update) error {
		return b.handleUpdate(ctx, update)
	})
}

// Stop waits for in-flight handlers to finish.
func (b *Bot) Stop(ctx context.Context) error {
	b.runningMu.Lock()
	if !b.running {
		b.runningMu.Unlock()
		return nil
	}
	b.running = false
	b.runningMu.Unlock()

	b.logger.Info("stopping telegram bot")

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(b.config.GracefulShutdownTimeout):
		b.logger.Warn("graceful shutdown timeout exceeded")
	case <-ctx.Done():
		b.logger.Warn("context cancelled during shutdown")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the bot is currently running.
func (b *Bot) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

// verifyToken verifies the bot token by calling getMe.
func (b *Bot) verifyToken(ctx context.Context) error {
	me, err := b.client.GetMe(ctx)
	if err != nil {
		return err
	}

	b.logger.Info("bot verified",
		"id", me.ID,
		"username", me.Username,
	)

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// handleUpdate processes a single Telegram update.
func (b *Bot) handleUpdate(ctx context.Context, update *telegram.Update) error {
	// Acquire semaphore slot
	select {
	case b.updateSem <- struct{}{}:
		defer func() { <-b.updateSem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	b.wg.Add(1)
	defer b.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic recovered in update handler",
				"update_id", update.UpdateID,
				"panic", r,
			)
		}
	}()

	if update.Message == nil {
		return nil
	}

	return b.handleMessage(ctx, update.Message)
}

// handleMessage processes a Telegram message.
func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg.From == nil || msg.From.IsBot {
		return nil
	}
	if !telegram.IsPrivateChat(msg) {
		// Group chats are out of scope, the bot works one-on-one
		return nil
	}
	if msg.Text == "" {
		return nil
	}

	switch telegram.ExtractCommand(msg) {
	case "start":
		_, err := b.client.SendText(ctx, msg.Chat.ID, startMessage)
		return err
	case "help":
		_, err := b.client.SendText(ctx, msg.Chat.ID, helpMessage)
		return err
	case "":
		// Free text goes to the agent
	default:
		_, err := b.client.SendText(ctx, msg.Chat.ID, helpMessage)
		return err
	}

	start := time.Now()

	outcome, err := b.pipeline.Process(ctx, pipeline.Incoming{
		ChatID:     msg.Chat.ID,
		TelegramID: msg.From.ID,
		Username:   msg.From.Username,
		FirstName:  msg.From.FirstName,
		LastName:   msg.From.LastName,
		Text:       msg.Text,
	})
	if err != nil {
		b.logger.Error("message processing failed",
			"chat_id", msg.Chat.ID,
			"telegram_id", msg.From.ID,
			"error", err,
		)
		_, sendErr := b.client.SendText(ctx, msg.Chat.ID,
			"Что-то пошло не так. Попробуйте ещё раз чуть позже.")
		if sendErr != nil {
			b.logger.Warn("failed to send error notice", "chat_id", msg.Chat.ID, "error", sendErr)
		}
		return err
	}

	b.logger.Debug("message handled",
		"chat_id", msg.Chat.ID,
		"delivered", outcome.Delivered,
		"duration", time.Since(start),
	)

	return nil
}
