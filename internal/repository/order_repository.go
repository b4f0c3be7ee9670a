package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"metalex/internal/models"
)

// Ошибки репозитория ордеров
var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrVersionConflict - версия ордера изменилась с момента чтения снапшота.
	// Optimistic lock: settlement целиком откатывается, MatchTrigger перечитывает
	// книгу и повторяет цикл.
	ErrVersionConflict = errors.New("order version conflict")
)

// orderColumns - единый список колонок для всех SELECT по таблице orders
const orderColumns = `id, instrument_id, owner_id, side, limit_price, quantity, filled_quantity, status, version, created_at`

// OrderRepository - работа с таблицей orders
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository создает новый экземпляр репозитория
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// scanOrder читает одну строку в модель ордера
func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.InstrumentID,
		&order.OwnerID,
		&order.Side,
		&order.LimitPrice,
		&order.Quantity,
		&order.FilledQuantity,
		&order.Status,
		&order.Version,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetByID возвращает ордер по ID
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return order, nil
}

// FindCrossable возвращает встречные resting ордера, против которых исполним
// тейкер, в порядке price-time priority.
//
// Условия отбора:
//   - тот же инструмент, противоположная сторона
//   - статус open или partially_filled
//   - владелец != владельца тейкера (self-trade prevention на границе запроса,
//     внутри алгоритма матчинга логики "чей это ордер" нет)
//   - цена пересекается: ask ≤ лимита покупателя / bid ≥ лимита продавца
//
// Порядок: лучшая цена первой (минимальный ask для buy-тейкера, максимальный
// bid для sell-тейкера), при равенстве - более ранний created_at, затем id
// для полного детерминизма.
func (r *OrderRepository) FindCrossable(ctx context.Context, taker *models.Order) ([]*models.Order, error) {
	var priceCond, priceOrder string
	if taker.Side == models.SideBuy {
		priceCond = "limit_price <= $4"
		priceOrder = "limit_price ASC"
	} else {
		priceCond = "limit_price >= $4"
		priceOrder = "limit_price DESC"
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE instrument_id = $1
		  AND side = $2
		  AND owner_id <> $3
		  AND ` + priceCond + `
		  AND status IN ('open', 'partially_filled')
		ORDER BY ` + priceOrder + `, created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query,
		taker.InstrumentID,
		taker.Side.Opposite(),
		taker.OwnerID,
		taker.LimitPrice,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// GetResting возвращает resting ордера одной стороны книги в priority порядке
// (read-only представление для UI и отладки)
func (r *OrderRepository) GetResting(ctx context.Context, instrumentID string, side models.Side, limit int) ([]*models.Order, error) {
	priceOrder := "limit_price DESC" // bids: лучший (максимальный) первым
	if side == models.SideSell {
		priceOrder = "limit_price ASC" // asks: лучший (минимальный) первым
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE instrument_id = $1
		  AND side = $2
		  AND status IN ('open', 'partially_filled')
		ORDER BY ` + priceOrder + `, created_at ASC, id ASC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, instrumentID, side, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// ApplyFill записывает прогресс исполнения ордера с проверкой версии.
//
// UPDATE выполняется с условием version = expectedVersion: если версия
// изменилась с момента чтения снапшота (гонка с отменой или другим
// settlement), строка не обновится и вернется ErrVersionConflict -
// сигнал вызывающему откатить транзакцию целиком.
func (r *OrderRepository) ApplyFill(ctx context.Context, q Querier, id string, filled decimal.Decimal, status models.OrderStatus, expectedVersion int64) error {
	query := `
		UPDATE orders
		SET filled_quantity = $1, status = $2, version = version + 1
		WHERE id = $3 AND version = $4`

	result, err := q.ExecContext(ctx, query, filled, status, id, expectedVersion)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrVersionConflict
	}

	return nil
}

// CountByStatus возвращает количество ордеров с определенным статусом
func (r *OrderRepository) CountByStatus(ctx context.Context, status models.OrderStatus) (int, error) {
	query := `SELECT COUNT(*) FROM orders WHERE status = $1`

	var count int
	err := r.db.QueryRowContext(ctx, query, status).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
