package service

import (
	"context"
	"sync"
	"time"

	"metalex/internal/engine"
	"metalex/internal/models"
	"metalex/internal/repository"
)

// ============ Mock OrderReader ============

// MockOrderReader потокобезопасен: TriggerMatch дергается из нескольких
// горутин в тестах сериализации
type MockOrderReader struct {
	mu sync.Mutex

	orders map[string]*models.Order

	// getQueue подменяет orders по очереди вызовов GetByID (для
	// симуляции изменения состояния между попытками)
	getQueue []*models.Order

	crossable    []*models.Order
	getErr       error
	crossableErr error

	getCalls       int
	crossableCalls int
}

func NewMockOrderReader() *MockOrderReader {
	return &MockOrderReader{
		orders: make(map[string]*models.Order),
	}
}

func (m *MockOrderReader) GetByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	if len(m.getQueue) > 0 {
		order := m.getQueue[0]
		m.getQueue = m.getQueue[1:]
		return order, nil
	}
	if order, exists := m.orders[id]; exists {
		return order, nil
	}
	return nil, repository.ErrOrderNotFound
}

func (m *MockOrderReader) FindCrossable(_ context.Context, _ *models.Order) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.crossableCalls++
	if m.crossableErr != nil {
		return nil, m.crossableErr
	}
	return m.crossable, nil
}

func (m *MockOrderReader) GetResting(_ context.Context, _ string, side models.Side, _ int) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Order
	for _, o := range m.crossable {
		if o.Side == side {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *MockOrderReader) CountByStatus(_ context.Context, status models.OrderStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return 0, m.getErr
	}
	count := 0
	for _, o := range m.orders {
		if o.Status == status {
			count++
		}
	}
	return count, nil
}

// ============ Mock Settler ============

type MockSettler struct {
	mu sync.Mutex

	// errQueue выдается по одной ошибке на вызов; после исчерпания
	// очереди Settle возвращает trades без ошибки
	errQueue []error
	trades   []*models.Trade

	// settleDelay удерживает Settle внутри вызова, чтобы пересечение
	// конкурентных settlement'ов было наблюдаемым
	settleDelay time.Duration

	calls      int
	lastResult *engine.MatchResult

	inFlight    int
	maxInFlight int
}

func (m *MockSettler) Settle(_ context.Context, result *engine.MatchResult) ([]*models.Trade, error) {
	m.mu.Lock()
	m.calls++
	m.lastResult = result
	var err error
	if len(m.errQueue) > 0 {
		err = m.errQueue[0]
		m.errQueue = m.errQueue[1:]
	}
	trades := m.trades
	delay := m.settleDelay
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return trades, nil
}

// ============ Mock TradeFeed ============

type MockTradeFeed struct {
	mu         sync.Mutex
	broadcasts [][]*models.Trade
}

func (m *MockTradeFeed) BroadcastTrades(trades []*models.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, trades)
}

// ============ Mock TradeReader ============

type MockTradeReader struct {
	trades []*models.Trade
	count  int
	err    error

	lastInstrument string
	lastLimit      int
	lastFrom       time.Time
	lastTo         time.Time
}

func (m *MockTradeReader) GetRecent(_ context.Context, instrumentID string, limit int) ([]*models.Trade, error) {
	m.lastInstrument = instrumentID
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.trades, nil
}

func (m *MockTradeReader) GetByOrderID(_ context.Context, _ string) ([]*models.Trade, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.trades, nil
}

func (m *MockTradeReader) GetInTimeRange(_ context.Context, instrumentID string, from, to time.Time) ([]*models.Trade, error) {
	m.lastInstrument = instrumentID
	m.lastFrom = from
	m.lastTo = to
	if m.err != nil {
		return nil, m.err
	}
	return m.trades, nil
}

func (m *MockTradeReader) Count(_ context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.count, nil
}

// ============ Mock HoldingReader ============

type MockHoldingReader struct {
	holdings []*models.Holding
	err      error
}

func (m *MockHoldingReader) GetByUser(_ context.Context, _ string) ([]*models.Holding, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.holdings, nil
}
