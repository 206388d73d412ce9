package bot

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"pricing-bot/internal/catalog"
	"pricing-bot/internal/config"
	"pricing-bot/internal/pricing"
	"pricing-bot/internal/quote"
	"pricing-bot/pkg/redis"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) last(t *testing.T) tgbotapi.Chattable {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	switch m := f.last(t).(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.DocumentConfig:
		return m.Caption
	default:
		t.Fatalf("unexpected message type %T", m)
		return ""
	}
}

type memKV struct {
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, redis.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	m.data[key] = data
	return nil
}

func (m *memKV) Del(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

const testChat int64 = 42

func testProducts() []catalog.Product {
	return []catalog.Product{
		{SKU: "A-100", Name: "Chave Philips", Brand: "Tramontina", StockQuantity: 3, UnitCost: decimal.NewFromInt(40)},
		{SKU: "B-200", Name: "Chave de Fenda", Brand: "Tramontina", StockQuantity: 7, UnitCost: decimal.NewFromInt(12)},
		{SKU: "C-300", Name: "Martelo", Brand: "Vonder", StockQuantity: 1, UnitCost: decimal.NewFromInt(55)},
	}
}

func newTestBot(t *testing.T, cfg *config.Config) (*Bot, *fakeAPI, *StateStorage) {
	t.Helper()

	products := catalog.New(catalog.SourceFunc(func(ctx context.Context) ([]catalog.Product, error) {
		return testProducts(), nil
	}), zap.NewNop())

	model, err := pricing.NewCostModel(
		[]decimal.Decimal{decimal.RequireFromString("0.04"), decimal.RequireFromString("0.06")},
		decimal.NewFromInt(3000), 600,
		decimal.NewFromInt(2),
	)
	if err != nil {
		t.Fatalf("NewCostModel failed: %v", err)
	}
	table, err := pricing.DefaultTable(pricing.ShopeeTiersV2)
	if err != nil {
		t.Fatalf("DefaultTable failed: %v", err)
	}

	if cfg == nil {
		cfg = &config.Config{Costs: config.CostConfig{DefaultMargin: 30}}
	}

	api := &fakeAPI{updates: make(chan tgbotapi.Update, 4)}
	state := NewStateStorage(newMemKV(), time.Hour)
	svc := quote.NewService(pricing.NewEngine(table, model), products, zap.NewNop())

	return newBot(api, state, svc, products, zap.NewNop(), cfg), api, state
}

func command(text string) tgbotapi.Update {
	cmd, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: testChat},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(cmd)},
		},
	}}
}

func text(s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: s,
		Chat: &tgbotapi.Chat{ID: testChat},
	}}
}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChat}},
	}}
}

func assertContains(t *testing.T, got string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("expected %q in:\n%s", w, got)
		}
	}
}

func TestSelectSKUQuotesDefaultMargin(t *testing.T) {
	b, api, state := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/sku A-100"))

	assertContains(t, api.lastText(t), "A-100 · Chave Philips", "margem alvo 30%", "Amazon:", "Melhor canal")

	session, err := state.Get(ctx, testChat)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if session.SKU != "A-100" {
		t.Fatalf("session sku: got %q", session.SKU)
	}
}

func TestSelectUnknownSKU(t *testing.T) {
	b, api, state := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/sku nope"))

	assertContains(t, api.lastText(t), "❌", "nope")
	session, _ := state.Get(ctx, testChat)
	if session.SKU != "" {
		t.Fatalf("unknown sku should not be stored, got %q", session.SKU)
	}
}

func TestInputsBeforeProduct(t *testing.T) {
	b, api, _ := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/margin 20"))
	assertContains(t, api.lastText(t), "Valor salvo")

	b.handleUpdate(ctx, command("/sku A-100"))
	assertContains(t, api.lastText(t), "margem alvo 20%")
}

func TestPriceAndDiscount(t *testing.T) {
	b, api, _ := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/sku A-100"))
	b.handleUpdate(ctx, command("/price 100"))
	assertContains(t, api.lastText(t), "Amazon: R$ 100,00 → lucro R$ 5,00 (5%)")

	b.handleUpdate(ctx, command("/discount 10"))
	assertContains(t, api.lastText(t), "desconto 10%", "Amazon: R$ 90,00")

	b.handleUpdate(ctx, command("/discount 150"))
	assertContains(t, api.lastText(t), "❌")
}

func TestCostOverride(t *testing.T) {
	b, api, _ := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/sku A-100"))
	b.handleUpdate(ctx, command("/cost 12,50"))
	assertContains(t, api.lastText(t), "Custo: R$ 12,50")

	b.handleUpdate(ctx, command("/cost off"))
	assertContains(t, api.lastText(t), "Custo: R$ 40,00")

	b.handleUpdate(ctx, command("/cost -1"))
	assertContains(t, api.lastText(t), "❌")
}

func TestMarkupCommand(t *testing.T) {
	b, api, _ := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/sku A-100"))
	b.handleUpdate(ctx, command("/markup 40"))
	assertContains(t, api.lastText(t), "markup 40%", "Loja (venda direta): R$ 56,00", "Amazon: R$ 200,00")
}

func TestListingKeyboardAndCallback(t *testing.T) {
	b, api, state := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/listing"))
	msg, ok := api.last(t).(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("expected message, got %T", api.last(t))
	}
	if _, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Fatalf("expected inline keyboard, got %T", msg.ReplyMarkup)
	}

	b.handleUpdate(ctx, callback("listing:classic"))
	if len(api.requests) != 1 {
		t.Fatalf("callback should be answered once, got %d", len(api.requests))
	}
	session, _ := state.Get(ctx, testChat)
	if session.Listing != string(pricing.ListingClassic) {
		t.Fatalf("listing: got %q", session.Listing)
	}

	b.handleUpdate(ctx, command("/listing gold"))
	assertContains(t, api.lastText(t), "❌")
}

func TestPlainTextSearch(t *testing.T) {
	b, api, state := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, text("chave"))
	msg := api.last(t).(tgbotapi.MessageConfig)
	assertContains(t, msg.Text, "A-100", "B-200")
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(keyboard.InlineKeyboard) != 2 {
		t.Fatalf("expected two product buttons, got %#v", msg.ReplyMarkup)
	}

	b.handleUpdate(ctx, text("MARTELO"))
	assertContains(t, api.lastText(t), "C-300 · Martelo")
	session, _ := state.Get(ctx, testChat)
	if session.SKU != "C-300" {
		t.Fatalf("single match should be selected, got %q", session.SKU)
	}

	b.handleUpdate(ctx, callback("sku:B-200"))
	assertContains(t, api.lastText(t), "B-200 · Chave de Fenda")

	b.handleUpdate(ctx, text("parafuso"))
	assertContains(t, api.lastText(t), "Nenhum produto")
}

func TestFindAlwaysLists(t *testing.T) {
	b, api, _ := newTestBot(t, nil)

	b.handleUpdate(context.Background(), command("/find vonder"))
	assertContains(t, api.lastText(t), "C-300 · Martelo · R$ 55,00 · estoque 1")
}

func TestDetail(t *testing.T) {
	b, api, _ := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/detail amazon"))
	assertContains(t, api.lastText(t), "❌")

	b.handleUpdate(ctx, command("/sku A-100"))
	b.handleUpdate(ctx, command("/price 100"))
	b.handleUpdate(ctx, command("/detail amazon"))
	assertContains(t, api.lastText(t), "Comissão (15%): R$ 15,00", "Frete: R$ 23,00", "Lucro: R$ 5,00 (5%)")

	b.handleUpdate(ctx, command("/detail nowhere"))
	assertContains(t, api.lastText(t), "não existe")
}

func TestExportInMemory(t *testing.T) {
	b, api, _ := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/export"))
	assertContains(t, api.lastText(t), "❌")

	b.handleUpdate(ctx, command("/sku A-100"))
	b.handleUpdate(ctx, command("/export"))

	doc, ok := api.last(t).(tgbotapi.DocumentConfig)
	if !ok {
		t.Fatalf("expected document, got %T", api.last(t))
	}
	file, ok := doc.File.(tgbotapi.FileBytes)
	if !ok || len(file.Bytes) == 0 {
		t.Fatalf("expected in-memory workbook, got %T", doc.File)
	}
}

func TestExportToReportsDir(t *testing.T) {
	dir := t.TempDir()
	b, api, _ := newTestBot(t, &config.Config{ReportsDir: dir, Costs: config.CostConfig{DefaultMargin: 30}})
	ctx := context.Background()

	b.handleUpdate(ctx, command("/sku A-100"))
	b.handleUpdate(ctx, command("/export"))

	doc := api.last(t).(tgbotapi.DocumentConfig)
	path, ok := doc.File.(tgbotapi.FilePath)
	if !ok {
		t.Fatalf("expected file path, got %T", doc.File)
	}
	if _, err := os.Stat(string(path)); err != nil {
		t.Fatalf("report missing: %v", err)
	}
}

func TestChannelsAndReload(t *testing.T) {
	b, api, _ := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/channels"))
	assertContains(t, api.lastText(t), "Shopee (shopee): faixas", "Magalu (magalu): comissão 16%, frete 5% do preço", "Impostos: 10%")

	b.handleUpdate(ctx, command("/reload"))
	assertContains(t, api.lastText(t), "3 produtos")
}

func TestStartResetsSession(t *testing.T) {
	b, api, state := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/sku A-100"))
	b.handleUpdate(ctx, command("/cost 12"))
	b.handleUpdate(ctx, command("/start"))
	assertContains(t, api.lastText(t), "Olá")

	session, err := state.Get(ctx, testChat)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if session.SKU != "" || session.Cost.Valid {
		t.Fatalf("expected empty session after /start, got %+v", session)
	}
}

func TestUnknownCommand(t *testing.T) {
	b, api, _ := newTestBot(t, nil)

	b.handleUpdate(context.Background(), command("/bogus"))
	assertContains(t, api.lastText(t), "Comando desconhecido")
}

func TestStartStopsWhenUpdatesClose(t *testing.T) {
	b, api, _ := newTestBot(t, nil)

	api.updates <- command("/help")
	close(api.updates)

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start returned %v", err)
	}
	assertContains(t, api.lastText(t), "/find")
}

func TestStartStopsOnCancel(t *testing.T) {
	b, _, _ := newTestBot(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start returned %v", err)
	}
}
