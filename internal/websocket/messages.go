package websocket

import "metalex/internal/models"

// Типизированные сообщения ленты (без map[string]interface{})

// TradeBatchMessage - пакет сделок одного settlement'а.
// Порядок внутри пакета - price-time priority порядок применения,
// он сохраняется для воспроизводимости у подписчиков.
type TradeBatchMessage struct {
	Type   string          `json:"type"` // "trades"
	Trades []*models.Trade `json:"trades"`
}
