package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side - сторона ордера. Закрытый типизированный набор значений
// вместо "голых" строк, проходящих через логику матчинга.
type Side string

// Стороны ордера
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid проверяет что сторона входит в закрытый набор
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite возвращает противоположную сторону (для поиска встречных ордеров)
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderStatus - статус ордера
//
// Машина состояний:
//
//	open → partially_filled → filled   (только вперед, через settlement)
//	open → cancelled                   (внешний путь отмены)
//	partially_filled → cancelled       (внешний путь отмены)
//
// filled и cancelled - терминальные, переходов из них нет.
type OrderStatus string

// Статусы ордера
const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// Terminal возвращает true для статусов из которых нет переходов
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// Order представляет лимитный ордер на покупку/продажу токенизированного металла
//
// Схема таблицы orders:
//
//	id              uuid primary key
//	instrument_id   text
//	owner_id        text
//	side            text (buy, sell)
//	limit_price     numeric (> 0, неизменяема после создания)
//	quantity        numeric (> 0, неизменяема после создания)
//	filled_quantity numeric (≥ 0, монотонно не убывает)
//	status          text
//	version         bigint (инкремент при каждой мутации, optimistic lock)
//	created_at      timestamptz (tie-break при равных ценах)
//
// Инварианты:
// - 0 ≤ FilledQuantity ≤ Quantity
// - Status == filled ⇔ FilledQuantity == Quantity
type Order struct {
	ID             string          `json:"id" db:"id"`
	InstrumentID   string          `json:"instrument_id" db:"instrument_id"` // токен металла (XAU-1G, XAG-100G, ...)
	OwnerID        string          `json:"owner_id" db:"owner_id"`
	Side           Side            `json:"side" db:"side"`
	LimitPrice     decimal.Decimal `json:"limit_price" db:"limit_price"`
	Quantity       decimal.Decimal `json:"quantity" db:"quantity"`
	FilledQuantity decimal.Decimal `json:"filled_quantity" db:"filled_quantity"`
	Status         OrderStatus     `json:"status" db:"status"`
	Version        int64           `json:"version" db:"version"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Remaining возвращает неисполненный остаток ордера
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// Matchable возвращает true если ордер может участвовать в матчинге.
// Терминальные статусы обрабатываются как no-op, не как ошибка.
func (o *Order) Matchable() bool {
	return o.Status == OrderStatusOpen || o.Status == OrderStatusPartiallyFilled
}

// CrossesPrice проверяет пересечение цен с встречным (resting) ордером.
// Для BUY тейкера: цена продавца ≤ лимита покупателя.
// Для SELL тейкера: цена покупателя ≥ лимита продавца.
func (o *Order) CrossesPrice(maker *Order) bool {
	if o.Side == SideBuy {
		return maker.LimitPrice.LessThanOrEqual(o.LimitPrice)
	}
	return maker.LimitPrice.GreaterThanOrEqual(o.LimitPrice)
}

// StatusForFill вычисляет статус ордера по прогрессу исполнения
func StatusForFill(quantity, filled decimal.Decimal) OrderStatus {
	if filled.GreaterThanOrEqual(quantity) {
		return OrderStatusFilled
	}
	if filled.GreaterThan(decimal.Zero) {
		return OrderStatusPartiallyFilled
	}
	return OrderStatusOpen
}
