package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade представляет одно исполненное пересечение ордеров.
// Запись append-only: после вставки никогда не изменяется и не удаляется.
//
// Схема таблицы trades:
//
//	id            uuid primary key
//	instrument_id text
//	buy_order_id  uuid
//	sell_order_id uuid
//	buyer_id      text
//	seller_id     text
//	quantity      numeric (> 0)
//	price         numeric (всегда лимитная цена maker'а)
//	executed_at   timestamptz
type Trade struct {
	ID           string          `json:"id" db:"id"`
	InstrumentID string          `json:"instrument_id" db:"instrument_id"`
	BuyOrderID   string          `json:"buy_order_id" db:"buy_order_id"`
	SellOrderID  string          `json:"sell_order_id" db:"sell_order_id"`
	BuyerID      string          `json:"buyer_id" db:"buyer_id"`
	SellerID     string          `json:"seller_id" db:"seller_id"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity"`
	Price        decimal.Decimal `json:"price" db:"price"`
	ExecutedAt   time.Time       `json:"executed_at" db:"executed_at"`
}
