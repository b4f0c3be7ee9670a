package engine

import "sync"

// InstrumentLocks сериализует циклы match-and-settle по инструменту.
//
// Два одновременных settlement'а одного инструмента не должны
// интерливиться (политика single-writer-per-instrument); циклы по разным
// инструментам выполняются полностью параллельно.
//
// sync.Map вместо map+mutex: частые чтения по уже известным инструментам,
// редкие записи при первом появлении нового.
type InstrumentLocks struct {
	locks sync.Map // map[string]*sync.Mutex
}

// NewInstrumentLocks создает новый набор блокировок
func NewInstrumentLocks() *InstrumentLocks {
	return &InstrumentLocks{}
}

// Lock захватывает блокировку инструмента и возвращает функцию освобождения
//
// Использование:
//
//	unlock := locks.Lock(order.InstrumentID)
//	defer unlock()
func (l *InstrumentLocks) Lock(instrumentID string) func() {
	mu, _ := l.locks.LoadOrStore(instrumentID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
