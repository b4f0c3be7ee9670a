package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"metalex/internal/models"
)

// Ошибки репозитория балансов
var (
	// ErrInsufficientHolding - у продавца недостаточно токенов для списания.
	// Структурно невозможно при валидации на создании ордера; проверяется
	// защитно - сигнал о нарушении инварианта, settlement прерывается целиком.
	ErrInsufficientHolding = errors.New("insufficient holding balance")
)

// HoldingRepository - работа с таблицей holdings
type HoldingRepository struct {
	db *sql.DB
}

// NewHoldingRepository создает новый экземпляр репозитория
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// Get возвращает баланс пользователя по инструменту.
// Отсутствие строки - не ошибка: возвращается нулевой баланс
// (holdings создаются лениво при первом зачислении).
func (r *HoldingRepository) Get(ctx context.Context, userID, instrumentID string) (*models.Holding, error) {
	query := `
		SELECT user_id, instrument_id, balance, updated_at
		FROM holdings
		WHERE user_id = $1 AND instrument_id = $2`

	holding := &models.Holding{}
	err := r.db.QueryRowContext(ctx, query, userID, instrumentID).Scan(
		&holding.UserID,
		&holding.InstrumentID,
		&holding.Balance,
		&holding.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.Holding{
				UserID:       userID,
				InstrumentID: instrumentID,
				Balance:      decimal.Zero,
			}, nil
		}
		return nil, err
	}

	return holding, nil
}

// GetByUser возвращает все балансы пользователя
func (r *HoldingRepository) GetByUser(ctx context.Context, userID string) ([]*models.Holding, error) {
	query := `
		SELECT user_id, instrument_id, balance, updated_at
		FROM holdings
		WHERE user_id = $1
		ORDER BY instrument_id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		holding := &models.Holding{}
		err := rows.Scan(
			&holding.UserID,
			&holding.InstrumentID,
			&holding.Balance,
			&holding.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, holding)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return holdings, nil
}

// Debit списывает amount токенов с баланса продавца.
//
// Условие balance >= amount входит в сам UPDATE: если строки нет или
// токенов не хватает, ни одна строка не обновится и вернется
// ErrInsufficientHolding. Продавец обязан уже держать баланс -
// ленивое создание для списания невалидно.
func (r *HoldingRepository) Debit(ctx context.Context, q Querier, userID, instrumentID string, amount decimal.Decimal) error {
	query := `
		UPDATE holdings
		SET balance = balance - $1, updated_at = NOW()
		WHERE user_id = $2 AND instrument_id = $3 AND balance >= $1`

	result, err := q.ExecContext(ctx, query, amount, userID, instrumentID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientHolding
	}

	return nil
}

// Credit зачисляет amount токенов на баланс покупателя.
// Строка создается лениво при первом зачислении (upsert).
func (r *HoldingRepository) Credit(ctx context.Context, q Querier, userID, instrumentID string, amount decimal.Decimal) error {
	query := `
		INSERT INTO holdings (user_id, instrument_id, balance, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, instrument_id)
		DO UPDATE SET balance = holdings.balance + EXCLUDED.balance, updated_at = NOW()`

	_, err := q.ExecContext(ctx, query, userID, instrumentID, amount)
	return err
}

// SumByInstrument возвращает суммарный баланс инструмента по всем держателям.
// Используется для аудита инварианта сохранения: матчинг эту сумму не меняет.
func (r *HoldingRepository) SumByInstrument(ctx context.Context, instrumentID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(balance), 0) FROM holdings WHERE instrument_id = $1`

	var sum decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, instrumentID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return sum, nil
}
