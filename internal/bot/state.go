package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pricing-bot/internal/pricing"
	"pricing-bot/internal/quote"
	"pricing-bot/pkg/redis"

	"github.com/shopspring/decimal"
)

const (
	ModeMargin = "margin"
	ModePrice  = "price"
	ModeMarkup = "markup"
)

// Session holds the operator inputs of one chat. It is not a history:
// every command overwrites the field it sets.
type Session struct {
	SKU      string              `json:"sku,omitempty"`
	Cost     decimal.NullDecimal `json:"cost"`
	Listing  string              `json:"listing,omitempty"`
	Mode     string              `json:"mode,omitempty"`
	Percent  decimal.NullDecimal `json:"percent"`
	Price    decimal.NullDecimal `json:"price"`
	Discount decimal.Decimal     `json:"discount"`
}

// Request turns the session into a quote request. defaultMargin fills in
// the percentage when the operator never set one.
func (s Session) Request(defaultMargin decimal.Decimal) quote.Request {
	req := quote.Request{
		SKU:      s.SKU,
		Cost:     s.Cost,
		Listing:  pricing.ListingPremium,
		Mode:     quote.ModeMargin,
		Percent:  defaultMargin,
		Discount: s.Discount,
	}

	if s.Listing == string(pricing.ListingClassic) {
		req.Listing = pricing.ListingClassic
	}
	if s.Percent.Valid {
		req.Percent = s.Percent.Decimal
	}

	switch s.Mode {
	case ModePrice:
		if s.Price.Valid {
			req.Mode = quote.ModePrice
			req.Price = s.Price.Decimal
		}
	case ModeMarkup:
		req.Mode = quote.ModeMarkup
	}
	return req
}

// KV is the subset of the Redis client the state storage needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type StateStorage struct {
	kv  KV
	ttl time.Duration
}

func NewStateStorage(kv KV, ttl time.Duration) *StateStorage {
	return &StateStorage{
		kv:  kv,
		ttl: ttl,
	}
}

func (s *StateStorage) Save(ctx context.Context, chatID int64, session Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.kv.Set(ctx, getStateKey(chatID), data, s.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get returns an empty session for a chat that has none.
func (s *StateStorage) Get(ctx context.Context, chatID int64) (Session, error) {
	data, err := s.kv.Get(ctx, getStateKey(chatID))
	if errors.Is(err, redis.ErrNotFound) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

// Update applies fn to the stored session and saves the result.
func (s *StateStorage) Update(ctx context.Context, chatID int64, fn func(*Session)) (Session, error) {
	session, err := s.Get(ctx, chatID)
	if err != nil {
		return Session{}, err
	}
	fn(&session)
	if err := s.Save(ctx, chatID, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

func (s *StateStorage) Clear(ctx context.Context, chatID int64) error {
	if err := s.kv.Del(ctx, getStateKey(chatID)); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func getStateKey(chatID int64) string {
	return fmt.Sprintf("pricing:session:%d", chatID)
}
