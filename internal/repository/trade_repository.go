package repository

import (
	"context"
	"database/sql"
	"time"

	"metalex/internal/models"
)

// tradeColumns - единый список колонок для SELECT по таблице trades
const tradeColumns = `id, instrument_id, buy_order_id, sell_order_id, buyer_id, seller_id, quantity, price, executed_at`

// TradeRepository - работа с таблицей trades.
// Таблица append-only: сделки никогда не изменяются и не удаляются.
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Insert вставляет сделку. Вызывается только из транзакции settlement'а,
// поэтому принимает Querier.
func (r *TradeRepository) Insert(ctx context.Context, q Querier, trade *models.Trade) error {
	query := `
		INSERT INTO trades (id, instrument_id, buy_order_id, sell_order_id, buyer_id, seller_id, quantity, price, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := q.ExecContext(ctx, query,
		trade.ID,
		trade.InstrumentID,
		trade.BuyOrderID,
		trade.SellOrderID,
		trade.BuyerID,
		trade.SellerID,
		trade.Quantity,
		trade.Price,
		trade.ExecutedAt,
	)
	return err
}

// scanTrade читает одну строку в модель сделки
func scanTrade(row interface{ Scan(...interface{}) error }) (*models.Trade, error) {
	trade := &models.Trade{}
	err := row.Scan(
		&trade.ID,
		&trade.InstrumentID,
		&trade.BuyOrderID,
		&trade.SellOrderID,
		&trade.BuyerID,
		&trade.SellerID,
		&trade.Quantity,
		&trade.Price,
		&trade.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// GetRecent возвращает последние N сделок по инструменту.
// Это poll-поверхность для слоя уведомлений/доставки токенов.
func (r *TradeRepository) GetRecent(ctx context.Context, instrumentID string, limit int) ([]*models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE instrument_id = $1
		ORDER BY executed_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, instrumentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// GetByOrderID возвращает все сделки с участием ордера (как buy, так и sell)
func (r *TradeRepository) GetByOrderID(ctx context.Context, orderID string) ([]*models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE buy_order_id = $1 OR sell_order_id = $1
		ORDER BY executed_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// GetInTimeRange возвращает сделки инструмента за период
func (r *TradeRepository) GetInTimeRange(ctx context.Context, instrumentID string, from, to time.Time) ([]*models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE instrument_id = $1 AND executed_at >= $2 AND executed_at <= $3
		ORDER BY executed_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, instrumentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// Count возвращает общее количество сделок
func (r *TradeRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM trades`

	var count int
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
