package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pricing-bot/internal/pricing"
	"pricing-bot/internal/quote"
	"pricing-bot/internal/report"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const searchLimit = 10

const helpText = `Comandos disponíveis:
/find <texto> - buscar produto por SKU, nome ou marca
/sku <sku> - selecionar produto
/margin <%> - preço mínimo por canal para a margem
/price <valor> - margem de cada canal a um preço
/markup <%> - markup na loja, margem nos marketplaces
/discount <%> - simular desconto (0 remove)
/cost <valor|off> - substituir o custo do catálogo
/listing classic|premium - tipo de anúncio do Mercado Livre
/detail <canal> - detalhar custos de um canal
/channels - tabela de taxas
/export - exportar a cotação em xlsx
/reload - recarregar o catálogo

Texto sem comando é tratado como busca.`

var hundred = decimal.NewFromInt(100)

// handleStart resets the chat session.
func (b *Bot) handleStart(ctx context.Context, chatID int64, _ string) {
	if err := b.state.Clear(ctx, chatID); err != nil {
		b.logStateError(chatID, err)
	}
	b.sendText(chatID, "Olá! 👋 Eu calculo preço e margem dos produtos em cada canal de venda.\n\n"+helpText)
}

func (b *Bot) handleHelp(ctx context.Context, chatID int64, _ string) {
	b.sendText(chatID, helpText)
}

func (b *Bot) handleChannels(ctx context.Context, chatID int64, _ string) {
	engine := b.quotes.Engine()

	var lines []string
	for _, id := range engine.ListChannels() {
		rule, err := engine.Rule(id)
		if err != nil {
			b.logger.Error("Channel listed but not found",
				zap.String("channel", id),
				zap.Error(err))
			continue
		}
		lines = append(lines, formatChannel(rule))
	}

	model := engine.CostModel()
	lines = append(lines, "",
		fmt.Sprintf("Impostos: %s · Custo fixo/pedido: %s · Operacional/pedido: %s",
			formatPercent(model.TaxRate.Shift(2)),
			formatMoney(model.FixedCostPerOrder),
			formatMoney(model.OperationalCostPerOrder)))

	b.sendText(chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleFind(ctx context.Context, chatID int64, args string) {
	query := strings.TrimSpace(args)
	if query == "" {
		b.sendError(chatID, "Use /find <texto>")
		return
	}
	b.search(ctx, chatID, query, false)
}

// handleSearchText treats free text as a search and selects the product
// right away when there is a single match.
func (b *Bot) handleSearchText(ctx context.Context, chatID int64, text string) {
	query := strings.TrimSpace(text)
	if query == "" {
		b.handleHelp(ctx, chatID, "")
		return
	}
	b.search(ctx, chatID, query, true)
}

func (b *Bot) search(ctx context.Context, chatID int64, query string, selectSingle bool) {
	products, err := b.catalog.Search(ctx, query, searchLimit)
	if err != nil {
		b.logger.Error("Catalog search failed",
			zap.Int64("chat_id", chatID),
			zap.String("query", query),
			zap.Error(err))
		b.sendError(chatID, "Catálogo indisponível no momento")
		return
	}

	if len(products) == 0 {
		b.sendText(chatID, fmt.Sprintf("Nenhum produto encontrado para %q", query))
		return
	}

	if selectSingle && len(products) == 1 {
		b.handleSKU(ctx, chatID, products[0].SKU)
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatProducts(products))
	if keyboard, ok := createProductKeyboard(products); ok {
		msg.ReplyMarkup = keyboard
	}
	b.sendMessage(msg)
}

func (b *Bot) handleSKU(ctx context.Context, chatID int64, args string) {
	sku := strings.TrimSpace(args)
	if sku == "" {
		b.sendError(chatID, "Use /sku <sku>")
		return
	}

	session, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logStateError(chatID, err)
		b.sendError(chatID, "Erro ao carregar a sessão")
		return
	}
	session.SKU = sku

	q, ok := b.quote(ctx, chatID, session)
	if !ok {
		return
	}

	if err := b.state.Save(ctx, chatID, session); err != nil {
		b.logStateError(chatID, err)
	}
	b.sendText(chatID, formatQuote(q))
}

func (b *Bot) handleCost(ctx context.Context, chatID int64, args string) {
	arg := strings.ToLower(strings.TrimSpace(args))
	if arg == "off" || arg == "catalogo" || arg == "catálogo" {
		b.updateAndQuote(ctx, chatID, func(s *Session) {
			s.Cost = decimal.NullDecimal{}
		})
		return
	}

	cost, err := parseAmount(arg)
	if err != nil || cost.IsNegative() {
		b.sendError(chatID, "Custo inválido. Exemplo: /cost 12,90")
		return
	}
	b.updateAndQuote(ctx, chatID, func(s *Session) {
		s.Cost = decimal.NewNullDecimal(cost)
	})
}

func (b *Bot) handleMargin(ctx context.Context, chatID int64, args string) {
	margin, err := parseAmount(args)
	if err != nil || margin.GreaterThanOrEqual(hundred) {
		b.sendError(chatID, "Margem inválida. Exemplo: /margin 30")
		return
	}
	b.updateAndQuote(ctx, chatID, func(s *Session) {
		s.Mode = ModeMargin
		s.Percent = decimal.NewNullDecimal(margin)
	})
}

func (b *Bot) handlePrice(ctx context.Context, chatID int64, args string) {
	price, err := parseAmount(args)
	if err != nil || !price.IsPositive() {
		b.sendError(chatID, "Preço inválido. Exemplo: /price 149,90")
		return
	}
	b.updateAndQuote(ctx, chatID, func(s *Session) {
		s.Mode = ModePrice
		s.Price = decimal.NewNullDecimal(price)
	})
}

func (b *Bot) handleMarkup(ctx context.Context, chatID int64, args string) {
	markup, err := parseAmount(args)
	if err != nil || markup.IsNegative() {
		b.sendError(chatID, "Markup inválido. Exemplo: /markup 40")
		return
	}
	b.updateAndQuote(ctx, chatID, func(s *Session) {
		s.Mode = ModeMarkup
		s.Percent = decimal.NewNullDecimal(markup)
	})
}

func (b *Bot) handleDiscount(ctx context.Context, chatID int64, args string) {
	discount, err := parseAmount(args)
	if err != nil || discount.IsNegative() || discount.GreaterThanOrEqual(hundred) {
		b.sendError(chatID, "Desconto inválido. Use um valor entre 0 e 99,99")
		return
	}
	b.updateAndQuote(ctx, chatID, func(s *Session) {
		s.Discount = discount
	})
}

func (b *Bot) handleListing(ctx context.Context, chatID int64, args string) {
	if strings.TrimSpace(args) == "" {
		msg := tgbotapi.NewMessage(chatID, "Escolha o tipo de anúncio do Mercado Livre:")
		msg.ReplyMarkup = createListingKeyboard()
		b.sendMessage(msg)
		return
	}

	listing, err := pricing.ParseListingType(args)
	if err != nil {
		b.sendError(chatID, "Tipo de anúncio inválido. Use classic ou premium")
		return
	}
	b.updateAndQuote(ctx, chatID, func(s *Session) {
		s.Listing = string(listing)
	})
}

func (b *Bot) handleDetail(ctx context.Context, chatID int64, args string) {
	channel := strings.TrimSpace(args)
	if channel == "" {
		b.sendError(chatID, "Use /detail <canal>. Veja /channels")
		return
	}

	session, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logStateError(chatID, err)
		b.sendError(chatID, "Erro ao carregar a sessão")
		return
	}
	if session.SKU == "" {
		b.sendError(chatID, "Selecione um produto com /sku ou /find")
		return
	}

	if _, err := b.quotes.Engine().Rule(channel); err != nil {
		var notFound *pricing.NotFoundError
		if errors.As(err, &notFound) {
			b.sendError(chatID, fmt.Sprintf("Canal %q não existe. Veja /channels", channel))
			return
		}
		b.sendError(chatID, "Erro ao consultar o canal")
		return
	}

	q, ok := b.quote(ctx, chatID, session)
	if !ok {
		return
	}
	for _, l := range q.Lines {
		if !strings.EqualFold(l.Channel, channel) {
			continue
		}
		if l.Err != nil {
			b.sendError(chatID, fmt.Sprintf("%s: %v", l.Name, l.Err))
			return
		}
		b.sendText(chatID, fmt.Sprintf("%s · %s\n\n%s", l.Name, q.Product.SKU, formatBreakdown(l.Result)))
		return
	}
}

func (b *Bot) handleExport(ctx context.Context, chatID int64, _ string) {
	session, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logStateError(chatID, err)
		b.sendError(chatID, "Erro ao carregar a sessão")
		return
	}
	if session.SKU == "" {
		b.sendError(chatID, "Selecione um produto com /sku ou /find")
		return
	}

	q, ok := b.quote(ctx, chatID, session)
	if !ok {
		return
	}

	now := time.Now()
	var file tgbotapi.RequestFileData
	if b.cfg.ReportsDir != "" {
		path, err := report.Save(b.cfg.ReportsDir, q, now)
		if err != nil {
			b.logger.Error("Failed to save report",
				zap.Int64("chat_id", chatID),
				zap.Error(err))
			b.sendError(chatID, "Erro ao gerar a planilha")
			return
		}
		b.logger.Info("Report saved",
			zap.Int64("chat_id", chatID),
			zap.String("path", path))
		file = tgbotapi.FilePath(path)
	} else {
		var buf bytes.Buffer
		if err := report.Write(&buf, q, now); err != nil {
			b.logger.Error("Failed to build report",
				zap.Int64("chat_id", chatID),
				zap.Error(err))
			b.sendError(chatID, "Erro ao gerar a planilha")
			return
		}
		file = tgbotapi.FileBytes{
			Name:  fmt.Sprintf("cotacao_%s.xlsx", q.Product.SKU),
			Bytes: buf.Bytes(),
		}
	}

	doc := tgbotapi.NewDocument(chatID, file)
	doc.Caption = fmt.Sprintf("Cotação %s", q.Product.SKU)
	b.sendMessage(doc)
}

func (b *Bot) handleReload(ctx context.Context, chatID int64, _ string) {
	b.catalog.Invalidate()

	products, err := b.catalog.Products(ctx)
	if err != nil {
		b.logger.Error("Catalog reload failed",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Falha ao recarregar o catálogo")
		return
	}

	b.logger.Info("Catalog reloaded",
		zap.Int64("chat_id", chatID),
		zap.Int("products", len(products)))
	b.sendText(chatID, fmt.Sprintf("✅ Catálogo recarregado: %d produtos", len(products)))
}

// updateAndQuote stores the change and re-evaluates the selected product.
func (b *Bot) updateAndQuote(ctx context.Context, chatID int64, fn func(*Session)) {
	session, err := b.state.Update(ctx, chatID, fn)
	if err != nil {
		b.logStateError(chatID, err)
		b.sendError(chatID, "Erro ao salvar a sessão")
		return
	}

	if session.SKU == "" {
		b.sendText(chatID, "✅ Valor salvo. Selecione um produto com /sku ou /find")
		return
	}

	q, ok := b.quote(ctx, chatID, session)
	if !ok {
		return
	}
	b.sendText(chatID, formatQuote(q))
}

// quote evaluates the session and reports failures to the chat itself.
func (b *Bot) quote(ctx context.Context, chatID int64, session Session) (quote.Quote, bool) {
	q, found, err := b.quotes.ForSKU(ctx, session.Request(b.defaultMargin))
	switch {
	case errors.Is(err, quote.ErrInvalidRequest):
		b.sendError(chatID, err.Error())
		return quote.Quote{}, false
	case err != nil:
		b.logger.Error("Failed to quote product",
			zap.Int64("chat_id", chatID),
			zap.String("sku", session.SKU),
			zap.Error(err))
		b.sendError(chatID, "Catálogo indisponível no momento")
		return quote.Quote{}, false
	case !found:
		b.sendError(chatID, fmt.Sprintf("Produto %s não encontrado", session.SKU))
		return quote.Quote{}, false
	}
	return q, true
}

func (b *Bot) logStateError(chatID int64, err error) {
	b.logger.Error("Session state failure",
		zap.Int64("chat_id", chatID),
		zap.Error(err))
}
