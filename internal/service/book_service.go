package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"metalex/internal/models"
)

// Ошибки read-сервиса книги
var (
	ErrInstrumentRequired = errors.New("instrument id is required")
	ErrUserRequired       = errors.New("user id is required")
	ErrOrderIDRequired    = errors.New("order id is required")
	ErrInvalidTimeRange   = errors.New("from must be before to")
)

// Лимиты выборок
const (
	DefaultBookDepth = 50
	MaxBookDepth     = 500

	DefaultTradeLimit = 100
	MaxTradeLimit     = 1000
)

// BookSnapshot - обе стороны resting книги в priority порядке
type BookSnapshot struct {
	InstrumentID string          `json:"instrument_id"`
	Bids         []*models.Order `json:"bids"`
	Asks         []*models.Order `json:"asks"`
}

// BookService - read-only выборки из Ledger'а для API и внешних слоев.
// Никаких мутаций: писать в Order/Trade/Holding может только settlement.
type BookService struct {
	orders   BookReaderInterface
	trades   TradeReaderInterface
	holdings HoldingReaderInterface
}

// NewBookService создает новый read-сервис
func NewBookService(orders BookReaderInterface, trades TradeReaderInterface, holdings HoldingReaderInterface) *BookService {
	return &BookService{
		orders:   orders,
		trades:   trades,
		holdings: holdings,
	}
}

// GetOrder возвращает ордер по ID
func (s *BookService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrOrderIDRequired
	}
	return s.orders.GetByID(ctx, id)
}

// GetBook возвращает снапшот обеих сторон книги в priority порядке.
// depth ≤ 0 заменяется на DefaultBookDepth, сверху ограничен MaxBookDepth.
func (s *BookService) GetBook(ctx context.Context, instrumentID string, depth int) (*BookSnapshot, error) {
	if strings.TrimSpace(instrumentID) == "" {
		return nil, ErrInstrumentRequired
	}
	if depth <= 0 {
		depth = DefaultBookDepth
	}
	if depth > MaxBookDepth {
		depth = MaxBookDepth
	}

	bids, err := s.orders.GetResting(ctx, instrumentID, models.SideBuy, depth)
	if err != nil {
		return nil, err
	}
	asks, err := s.orders.GetResting(ctx, instrumentID, models.SideSell, depth)
	if err != nil {
		return nil, err
	}

	return &BookSnapshot{
		InstrumentID: instrumentID,
		Bids:         bids,
		Asks:         asks,
	}, nil
}

// GetRecentTrades возвращает последние сделки инструмента
func (s *BookService) GetRecentTrades(ctx context.Context, instrumentID string, limit int) ([]*models.Trade, error) {
	if strings.TrimSpace(instrumentID) == "" {
		return nil, ErrInstrumentRequired
	}
	if limit <= 0 {
		limit = DefaultTradeLimit
	}
	if limit > MaxTradeLimit {
		limit = MaxTradeLimit
	}
	return s.trades.GetRecent(ctx, instrumentID, limit)
}

// GetOrderTrades возвращает все сделки с участием ордера
func (s *BookService) GetOrderTrades(ctx context.Context, orderID string) ([]*models.Trade, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, ErrOrderIDRequired
	}
	return s.trades.GetByOrderID(ctx, orderID)
}

// GetTradesInRange возвращает сделки инструмента за период [from, to)
func (s *BookService) GetTradesInRange(ctx context.Context, instrumentID string, from, to time.Time) ([]*models.Trade, error) {
	if strings.TrimSpace(instrumentID) == "" {
		return nil, ErrInstrumentRequired
	}
	if !from.Before(to) {
		return nil, ErrInvalidTimeRange
	}
	return s.trades.GetInTimeRange(ctx, instrumentID, from, to)
}

// MarketStats - сводка состояния рынка для операционных дашбордов
type MarketStats struct {
	OpenOrders            int `json:"open_orders"`
	PartiallyFilledOrders int `json:"partially_filled_orders"`
	TotalTrades           int `json:"total_trades"`
}

// GetMarketStats возвращает количество активных ордеров и сделок
func (s *BookService) GetMarketStats(ctx context.Context) (*MarketStats, error) {
	open, err := s.orders.CountByStatus(ctx, models.OrderStatusOpen)
	if err != nil {
		return nil, err
	}
	partial, err := s.orders.CountByStatus(ctx, models.OrderStatusPartiallyFilled)
	if err != nil {
		return nil, err
	}
	trades, err := s.trades.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &MarketStats{
		OpenOrders:            open,
		PartiallyFilledOrders: partial,
		TotalTrades:           trades,
	}, nil
}

// GetHoldings возвращает все балансы пользователя
func (s *BookService) GetHoldings(ctx context.Context, userID string) ([]*models.Holding, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	return s.holdings.GetByUser(ctx, userID)
}
