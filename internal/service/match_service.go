package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"metalex/internal/engine"
	"metalex/internal/models"
	"metalex/internal/repository"
	"metalex/pkg/retry"
)

// Ошибки сервиса матчинга
var (
	// ErrRetryExhausted - конфликт версий не разрешился за отведенное число
	// попыток. Вызывающий может безопасно повторить триггер позже.
	ErrRetryExhausted = errors.New("match cycle retries exhausted")
)

// MatchOutcome - результат обработки одного триггера
type MatchOutcome struct {
	TradesExecuted int                `json:"trades_executed"`
	OrderStatus    models.OrderStatus `json:"order_status"`
	FilledQuantity decimal.Decimal    `json:"filled_quantity"`
}

// MatchService - входная точка матчинга (MatchTrigger)
//
// Один вызов TriggerMatch на каждое событие изменения ордера:
// загрузить ордер → захватить блокировку инструмента → выборка встречных →
// чистый кроссинг → атомарный settlement. При конфликте версий весь цикл
// повторяется с новым снапшотом ограниченное число раз.
//
// Повторный триггер по уже исполненному ордеру - безопасный no-op.
// Падение посреди цикла безопасно: атомарность settlement'а гарантирует,
// что в базе либо нет следов, либо применен весь батч.
type MatchService struct {
	orders  OrderReaderInterface
	settler SettlerInterface
	locks   *engine.InstrumentLocks
	logger  *zap.Logger

	// feed может быть nil (например, в тестах) - тогда broadcast пропускается
	feed TradeFeed

	retryCfg retry.Config
}

// NewMatchService создает новый сервис матчинга
func NewMatchService(
	orders OrderReaderInterface,
	settler SettlerInterface,
	locks *engine.InstrumentLocks,
	feed TradeFeed,
	logger *zap.Logger,
	maxRetries int,
	retryBackoff time.Duration,
) *MatchService {
	cfg := retry.DefaultConfig()
	if maxRetries > 0 {
		cfg.MaxRetries = maxRetries
	}
	if retryBackoff > 0 {
		cfg.InitialDelay = retryBackoff
	}

	return &MatchService{
		orders:   orders,
		settler:  settler,
		locks:    locks,
		feed:     feed,
		logger:   logger,
		retryCfg: cfg,
	}
}

// TriggerMatch обрабатывает событие "ордер изменился, попробуй сматчить"
//
// Возвращает:
//   - MatchOutcome при успехе (в том числе no-op для терминальных ордеров
//     и 0 сделок когда пересечений нет)
//   - repository.ErrOrderNotFound если ордера не существует
//   - ErrRetryExhausted если конфликт версий не разрешился
//   - repository.ErrInsufficientHolding при нарушении инварианта балансов
func (s *MatchService) TriggerMatch(ctx context.Context, orderID string) (*MatchOutcome, error) {
	started := time.Now()

	// Первая загрузка - до блокировки: нужен instrument_id.
	// Терминальный статус (filled/cancelled) - успешный no-op, не ошибка.
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		engine.CountTrigger("error")
		return nil, err
	}
	if !order.Matchable() {
		engine.CountTrigger("noop")
		return &MatchOutcome{
			TradesExecuted: 0,
			OrderStatus:    order.Status,
			FilledQuantity: order.FilledQuantity,
		}, nil
	}

	// Сериализация по инструменту: никакие два settlement'а одного
	// инструмента не выполняются одновременно
	unlock := s.locks.Lock(order.InstrumentID)
	defer unlock()

	cfg := s.retryCfg
	cfg.RetryIf = retryableCycleError
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		engine.CountTriggerRetry()
		s.logger.Warn("match cycle retry",
			zap.String("order_id", orderID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	outcome, err := retry.DoWithResult(ctx, func() (*MatchOutcome, error) {
		return s.runCycle(ctx, orderID)
	}, cfg)
	if err != nil {
		engine.CountTrigger("error")
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, errors.Join(ErrRetryExhausted, err)
		}
		return nil, err
	}

	engine.ObserveMatchCycle(order.InstrumentID, float64(time.Since(started).Microseconds())/1000.0)

	return outcome, nil
}

// runCycle выполняет одну попытку цикла: свежий снапшот → матчинг → settlement
func (s *MatchService) runCycle(ctx context.Context, orderID string) (*MatchOutcome, error) {
	// Перечитываем ордер на каждой попытке: после конфликта версий
	// старый снапшот бесполезен
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Matchable() {
		// Ордер стал терминальным между попытками (например, отмена
		// выиграла гонку) - корректный no-op
		engine.CountTrigger("noop")
		return &MatchOutcome{
			TradesExecuted: 0,
			OrderStatus:    order.Status,
			FilledQuantity: order.FilledQuantity,
		}, nil
	}

	candidates, err := s.orders.FindCrossable(ctx, order)
	if err != nil {
		return nil, err
	}

	result := engine.Match(order, candidates)
	if len(result.Fills) == 0 {
		engine.CountTrigger("no_match")
		return &MatchOutcome{
			TradesExecuted: 0,
			OrderStatus:    order.Status,
			FilledQuantity: order.FilledQuantity,
		}, nil
	}

	trades, err := s.settler.Settle(ctx, result)
	if err != nil {
		return nil, err
	}

	s.logger.Info("match cycle settled",
		zap.String("order_id", orderID),
		zap.String("instrument_id", order.InstrumentID),
		zap.Int("trades", len(trades)),
		zap.String("taker_status", string(result.Taker.NewStatus)),
	)
	engine.CountTrigger("matched")

	// Broadcast после коммита: лента сделок никогда не участвует
	// в транзакции settlement'а
	if s.feed != nil {
		s.feed.BroadcastTrades(trades)
	}

	return &MatchOutcome{
		TradesExecuted: len(trades),
		OrderStatus:    result.Taker.NewStatus,
		FilledQuantity: result.Taker.NewFilled,
	}, nil
}

// retryableCycleError решает, имеет ли смысл повторять цикл.
// Конфликт версий и транзиентные сбои хранилища - да (атомарность
// гарантирует отсутствие частичных записей); отсутствие ордера и
// нарушение инварианта балансов - нет.
func retryableCycleError(err error) bool {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return false
	}
	if errors.Is(err, repository.ErrInsufficientHolding) {
		return false
	}
	return true
}
