package checkout

import "sync"

// customerLocks выдаёт mutex на клиента и удаляет его, когда он никому не нужен.
type customerLocks struct {
	mu    sync.Mutex
	locks map[int64]*customerLock
}

type customerLock struct {
	mu   sync.Mutex
	refs int
}

func newCustomerLocks() *customerLocks {
	return &customerLocks{locks: make(map[int64]*customerLock)}
}

// lock захватывает mutex клиента и возвращает функцию освобождения.
func (l *customerLocks) lock(customerID int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[customerID]
	if !ok {
		entry = &customerLock{}
		l.locks[customerID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, customerID)
		}
		l.mu.Unlock()
	}
}

func (l *customerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
