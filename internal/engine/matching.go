package engine

import (
	"github.com/shopspring/decimal"

	"metalex/internal/models"
)

// matching.go - алгоритм кроссинга (MatchingEngine)
//
// Чистая функция над одним тейкером и снапшотом встречных кандидатов:
// никакого I/O, никаких мутаций состояния, никаких ошибок. Это делает
// алгоритм unit-тестируемым без базы данных, а детерминизм - проверяемым
// свойством (один снапшот → всегда одна и та же последовательность сделок).
//
// Self-trade prevention находится на границе выборки кандидатов
// (OrderBookView), поэтому внутри алгоритма нет логики "чей это ордер".

// OrderDelta - предлагаемое изменение состояния одного ордера.
// ExpectedVersion фиксирует версию, прочитанную в снапшоте: settlement
// применит дельту только если версия в базе не изменилась.
type OrderDelta struct {
	Order           *models.Order
	NewFilled       decimal.Decimal
	NewStatus       models.OrderStatus
	ExpectedVersion int64
}

// Fill - одна предлагаемая сделка в паре с дельтой maker-ордера.
// Trade.ID и Trade.ExecutedAt проставляет settlement при записи.
type Fill struct {
	Trade *models.Trade
	Maker OrderDelta
}

// MatchResult - результат кроссинга: упорядоченный список сделок
// плюс итоговая дельта тейкера
type MatchResult struct {
	Taker OrderDelta
	Fills []Fill
}

// Match прогоняет тейкера по кандидатам в порядке price-time priority.
//
// Для каждого maker'а исполняется min(остаток тейкера, остаток maker'а)
// по лимитной цене maker'а: resting цена всегда соблюдается, price
// improvement достается тейкеру. Остановка - когда остаток тейкера
// исчерпан или кандидаты закончились.
//
// Неполное исполнение тейкера - не ошибка: статус остается open или
// partially_filled. Пустой список кандидатов дает валидный пустой результат.
func Match(taker *models.Order, candidates []*models.Order) *MatchResult {
	remaining := taker.Remaining()
	result := &MatchResult{
		Taker: OrderDelta{
			Order:           taker,
			NewFilled:       taker.FilledQuantity,
			NewStatus:       taker.Status,
			ExpectedVersion: taker.Version,
		},
	}

	for _, maker := range candidates {
		if !remaining.GreaterThan(decimal.Zero) {
			break
		}

		makerRemaining := maker.Remaining()
		tradeQty := decimal.Min(remaining, makerRemaining)
		if !tradeQty.GreaterThan(decimal.Zero) {
			continue
		}

		trade := &models.Trade{
			InstrumentID: taker.InstrumentID,
			Quantity:     tradeQty,
			Price:        maker.LimitPrice, // цена maker'а, всегда
		}
		if taker.Side == models.SideBuy {
			trade.BuyOrderID = taker.ID
			trade.BuyerID = taker.OwnerID
			trade.SellOrderID = maker.ID
			trade.SellerID = maker.OwnerID
		} else {
			trade.BuyOrderID = maker.ID
			trade.BuyerID = maker.OwnerID
			trade.SellOrderID = taker.ID
			trade.SellerID = taker.OwnerID
		}

		makerFilled := maker.FilledQuantity.Add(tradeQty)
		result.Fills = append(result.Fills, Fill{
			Trade: trade,
			Maker: OrderDelta{
				Order:           maker,
				NewFilled:       makerFilled,
				NewStatus:       models.StatusForFill(maker.Quantity, makerFilled),
				ExpectedVersion: maker.Version,
			},
		})

		remaining = remaining.Sub(tradeQty)
	}

	result.Taker.NewFilled = taker.Quantity.Sub(remaining)
	result.Taker.NewStatus = models.StatusForFill(taker.Quantity, result.Taker.NewFilled)

	return result
}
