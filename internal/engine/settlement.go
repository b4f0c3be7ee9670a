package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"metalex/internal/models"
	"metalex/internal/repository"
)

// settlement.go - SettlementCoordinator
//
// Применяет результат матчинга к Ledger'у как единую атомарную транзакцию:
// вставка сделок + обновление ордеров + движение балансов. Либо применяется
// весь батч с консистентными изменениями, либо ничего - это механизм,
// на котором держится инвариант сохранения токенов при конкурентном доступе.

// OrderFillWriter записывает прогресс исполнения ордера с проверкой версии
type OrderFillWriter interface {
	ApplyFill(ctx context.Context, q repository.Querier, id string, filled decimal.Decimal, status models.OrderStatus, expectedVersion int64) error
}

// TradeInserter вставляет запись о сделке
type TradeInserter interface {
	Insert(ctx context.Context, q repository.Querier, trade *models.Trade) error
}

// HoldingMover перемещает балансы между держателями
type HoldingMover interface {
	Debit(ctx context.Context, q repository.Querier, userID, instrumentID string, amount decimal.Decimal) error
	Credit(ctx context.Context, q repository.Querier, userID, instrumentID string, amount decimal.Decimal) error
}

// SettlementCoordinator применяет предлагаемые сделки к Ledger'у.
// Единственный компонент, которому разрешено мутировать Order/Trade/Holding.
type SettlementCoordinator struct {
	db       *sql.DB
	orders   OrderFillWriter
	trades   TradeInserter
	holdings HoldingMover
	logger   *zap.Logger

	// now подменяется в тестах
	now func() time.Time
}

// NewSettlementCoordinator создает новый координатор settlement'а
func NewSettlementCoordinator(
	db *sql.DB,
	orders OrderFillWriter,
	trades TradeInserter,
	holdings HoldingMover,
	logger *zap.Logger,
) *SettlementCoordinator {
	return &SettlementCoordinator{
		db:       db,
		orders:   orders,
		trades:   trades,
		holdings: holdings,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Settle применяет результат матчинга одной транзакцией.
//
// Внутри транзакции, в порядке price-time priority результата:
//  1. каждой сделке проставляются id и executed_at, сделка вставляется
//  2. maker-ордер обновляется с проверкой версии (optimistic lock)
//  3. баланс продавца списывается (нехватка = нарушение инварианта, abort)
//  4. баланс покупателя зачисляется (ленивое создание строки)
//
// затем обновляется тейкер, тоже с проверкой версии.
//
// Любая ошибка откатывает транзакцию целиком - частичного применения
// не существует. ErrVersionConflict сигнализирует вызывающему повторить
// весь цикл с новым снапшотом.
func (s *SettlementCoordinator) Settle(ctx context.Context, result *MatchResult) ([]*models.Trade, error) {
	if len(result.Fills) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin settlement tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	executedAt := s.now()
	trades := make([]*models.Trade, 0, len(result.Fills))

	for _, fill := range result.Fills {
		trade := fill.Trade
		trade.ID = uuid.New().String()
		trade.ExecutedAt = executedAt

		if err := s.trades.Insert(ctx, tx, trade); err != nil {
			return nil, fmt.Errorf("insert trade: %w", err)
		}

		maker := fill.Maker
		if err := s.orders.ApplyFill(ctx, tx, maker.Order.ID, maker.NewFilled, maker.NewStatus, maker.ExpectedVersion); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				settlementConflicts.Inc()
				s.logger.Warn("settlement aborted: maker version conflict",
					zap.String("maker_order_id", maker.Order.ID),
					zap.Int64("expected_version", maker.ExpectedVersion),
				)
			}
			return nil, fmt.Errorf("apply maker fill %s: %w", maker.Order.ID, err)
		}

		if err := s.holdings.Debit(ctx, tx, trade.SellerID, trade.InstrumentID, trade.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientHolding) {
				s.logger.Error("settlement aborted: seller balance below trade quantity",
					zap.String("seller_id", trade.SellerID),
					zap.String("instrument_id", trade.InstrumentID),
					zap.String("quantity", trade.Quantity.String()),
				)
			}
			return nil, fmt.Errorf("debit seller %s: %w", trade.SellerID, err)
		}

		if err := s.holdings.Credit(ctx, tx, trade.BuyerID, trade.InstrumentID, trade.Quantity); err != nil {
			return nil, fmt.Errorf("credit buyer %s: %w", trade.BuyerID, err)
		}

		trades = append(trades, trade)
	}

	taker := result.Taker
	if err := s.orders.ApplyFill(ctx, tx, taker.Order.ID, taker.NewFilled, taker.NewStatus, taker.ExpectedVersion); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			settlementConflicts.Inc()
		}
		return nil, fmt.Errorf("apply taker fill %s: %w", taker.Order.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settlement tx: %w", err)
	}
	committed = true

	tradesSettled.WithLabelValues(taker.Order.InstrumentID).Add(float64(len(trades)))

	return trades, nil
}
