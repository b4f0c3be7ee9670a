package service

import (
	"context"
	"time"

	"metalex/internal/engine"
	"metalex/internal/models"
)

// OrderReaderInterface определяет чтения Ledger'а, нужные циклу матчинга
type OrderReaderInterface interface {
	// GetByID возвращает ордер по ID (repository.ErrOrderNotFound если нет)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// FindCrossable возвращает встречные ордера в price-time priority порядке
	FindCrossable(ctx context.Context, taker *models.Order) ([]*models.Order, error)
}

// SettlerInterface определяет интерфейс координатора settlement'а
type SettlerInterface interface {
	// Settle применяет результат матчинга одной атомарной транзакцией
	Settle(ctx context.Context, result *engine.MatchResult) ([]*models.Trade, error)
}

// TradeFeed получает исполненные сделки после коммита settlement'а.
// Это поверхность подписки для слоя уведомлений/доставки - ядро само
// ничего не доставляет пользователям.
type TradeFeed interface {
	BroadcastTrades(trades []*models.Trade)
}

// BookReaderInterface определяет read-only выборки книги для API
type BookReaderInterface interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetResting(ctx context.Context, instrumentID string, side models.Side, limit int) ([]*models.Order, error)
	CountByStatus(ctx context.Context, status models.OrderStatus) (int, error)
}

// TradeReaderInterface определяет read-only выборки сделок для API
type TradeReaderInterface interface {
	GetRecent(ctx context.Context, instrumentID string, limit int) ([]*models.Trade, error)
	GetByOrderID(ctx context.Context, orderID string) ([]*models.Trade, error)
	GetInTimeRange(ctx context.Context, instrumentID string, from, to time.Time) ([]*models.Trade, error)
	Count(ctx context.Context) (int, error)
}

// HoldingReaderInterface определяет read-only выборки балансов для API
type HoldingReaderInterface interface {
	GetByUser(ctx context.Context, userID string) ([]*models.Holding, error)
}
