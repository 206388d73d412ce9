package bot

import (
	"context"
	"fmt"
	"strings"

	"pricing-bot/internal/catalog"
	"pricing-bot/internal/config"
	"pricing-bot/internal/quote"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// API is the part of tgbotapi.BotAPI the bot talks to.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Catalog interface {
	Products(ctx context.Context) ([]catalog.Product, error)
	Search(ctx context.Context, query string, limit int) ([]catalog.Product, error)
	Invalidate()
}

type Bot struct {
	api           API
	logger        *zap.Logger
	state         *StateStorage
	quotes        *quote.Service
	catalog       Catalog
	cfg           *config.Config
	defaultMargin decimal.Decimal
	handlers      map[string]func(context.Context, int64, string)
}

func New(
	token string,
	state *StateStorage,
	quotes *quote.Service,
	products Catalog,
	logger *zap.Logger,
	cfg *config.Config,
) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	botAPI.Debug = cfg.BotDebug

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	return newBot(botAPI, state, quotes, products, logger, cfg), nil
}

func newBot(api API, state *StateStorage, quotes *quote.Service, products Catalog, logger *zap.Logger, cfg *config.Config) *Bot {
	b := &Bot{
		api:           api,
		logger:        logger,
		state:         state,
		quotes:        quotes,
		catalog:       products,
		cfg:           cfg,
		defaultMargin: decimal.NewFromFloat(cfg.Costs.DefaultMargin),
	}
	b.registerHandlers()
	return b
}

func (b *Bot) registerHandlers() {
	b.handlers = map[string]func(context.Context, int64, string){
		"start":    b.handleStart,
		"help":     b.handleHelp,
		"channels": b.handleChannels,
		"find":     b.handleFind,
		"sku":      b.handleSKU,
		"cost":     b.handleCost,
		"margin":   b.handleMargin,
		"price":    b.handlePrice,
		"discount": b.handleDiscount,
		"listing":  b.handleListing,
		"markup":   b.handleMarkup,
		"detail":   b.handleDetail,
		"export":   b.handleExport,
		"reload":   b.handleReload,
	}
}

// Start processes updates one at a time until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down bot")
			return nil

		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.processMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.processCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	b.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("text", msg.Text))

	if msg.IsCommand() {
		handler, exists := b.handlers[msg.Command()]
		if !exists {
			b.sendError(chatID, "Comando desconhecido. Use /help para ver os comandos.")
			return
		}
		handler(ctx, chatID, msg.CommandArguments())
		return
	}

	b.handleSearchText(ctx, chatID, msg.Text)
}

func (b *Bot) processCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil || callback.Message.Chat == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	data := callback.Data

	b.logger.Debug("Processing callback",
		zap.Int64("chat_id", chatID),
		zap.String("data", data))

	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}

	if sku, ok := strings.CutPrefix(data, callbackSKU); ok {
		b.handleSKU(ctx, chatID, sku)
		return
	}
	if listing, ok := strings.CutPrefix(data, callbackListing); ok {
		b.handleListing(ctx, chatID, listing)
		return
	}

	b.logger.Warn("Unknown callback data",
		zap.Int64("chat_id", chatID),
		zap.String("data", data))
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err))
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendError(chatID int64, text string) {
	b.sendText(chatID, "❌ "+text)
}
