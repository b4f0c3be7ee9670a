package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"metalex/internal/models"
	"metalex/internal/service"
)

// ErrMockStorage имитирует транзиентный сбой хранилища
var ErrMockStorage = errors.New("mock storage error")

// ============ Mock Match Service ============

// MockMatchService мок для MatchTrigger
type MockMatchService struct {
	outcome *service.MatchOutcome
	err     error

	lastOrderID string
	calls       int
}

func NewMockMatchService() *MockMatchService {
	return &MockMatchService{
		outcome: &service.MatchOutcome{
			TradesExecuted: 0,
			OrderStatus:    models.OrderStatusOpen,
			FilledQuantity: decimal.Zero,
		},
	}
}

func (m *MockMatchService) TriggerMatch(_ context.Context, orderID string) (*service.MatchOutcome, error) {
	m.calls++
	m.lastOrderID = orderID
	if m.err != nil {
		return nil, m.err
	}
	return m.outcome, nil
}

// ============ Mock Book Service ============

// MockBookService мок для BookReader
type MockBookService struct {
	order    *models.Order
	book     *service.BookSnapshot
	trades   []*models.Trade
	holdings []*models.Holding
	stats    *service.MarketStats
	err      error

	lastInstrument string
	lastDepth      int
	lastLimit      int
	lastFrom       time.Time
	lastTo         time.Time
}

func NewMockBookService() *MockBookService {
	return &MockBookService{}
}

func (m *MockBookService) GetOrder(_ context.Context, id string) (*models.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *MockBookService) GetBook(_ context.Context, instrumentID string, depth int) (*service.BookSnapshot, error) {
	m.lastInstrument = instrumentID
	m.lastDepth = depth
	if m.err != nil {
		return nil, m.err
	}
	return m.book, nil
}

func (m *MockBookService) GetRecentTrades(_ context.Context, instrumentID string, limit int) ([]*models.Trade, error) {
	m.lastInstrument = instrumentID
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.trades, nil
}

func (m *MockBookService) GetTradesInRange(_ context.Context, instrumentID string, from, to time.Time) ([]*models.Trade, error) {
	m.lastInstrument = instrumentID
	m.lastFrom = from
	m.lastTo = to
	if m.err != nil {
		return nil, m.err
	}
	return m.trades, nil
}

func (m *MockBookService) GetMarketStats(_ context.Context) (*service.MarketStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

func (m *MockBookService) GetOrderTrades(_ context.Context, _ string) ([]*models.Trade, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.trades, nil
}

func (m *MockBookService) GetHoldings(_ context.Context, _ string) ([]*models.Holding, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.holdings, nil
}
