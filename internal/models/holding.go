package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding представляет баланс пользователя по одному инструменту.
// Создается лениво при первом зачислении, никогда не удаляется (может быть 0).
//
// Схема таблицы holdings:
//
//	user_id       text
//	instrument_id text
//	balance       numeric (≥ 0)
//	updated_at    timestamptz
//	primary key (user_id, instrument_id)
//
// Инвариант сохранения: сумма балансов по инструменту меняется только
// внешними mint/burn событиями; матчинг перемещает ровно quantity
// от продавца к покупателю и никогда не создает/не уничтожает токены.
type Holding struct {
	UserID       string          `json:"user_id" db:"user_id"`
	InstrumentID string          `json:"instrument_id" db:"instrument_id"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}
