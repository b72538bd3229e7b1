package jobs

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Locks — по одному мьютексу на индекс воркера. Один индекс не может
// выполняться дважды одновременно.
type Locks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewLocks создаёт пустой набор блокировок.
func NewLocks() *Locks {
	return &Locks{locks: make(map[int]*sync.Mutex)}
}

// Lock пытается захватить индекс. Если он занят, возвращается ошибка.
func (l *Locks) Lock(jobIndex int) error {
	l.mu.Lock()
	lock, ok := l.locks[jobIndex]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[jobIndex] = lock
	}
	l.mu.Unlock()

	if !lock.TryLock() {
		log.Warn().Int("job", jobIndex).Msg("[MUTEX] воркер уже запущен")
		return fmt.Errorf("воркер %d уже выполняется", jobIndex)
	}
	log.Debug().Int("job", jobIndex).Msg("[MUTEX] воркер заблокирован")
	return nil
}

// Unlock освобождает индекс.
func (l *Locks) Unlock(jobIndex int) {
	l.mu.Lock()
	lock := l.locks[jobIndex]
	l.mu.Unlock()
	if lock != nil {
		lock.Unlock()
		log.Debug().Int("job", jobIndex).Msg("[MUTEX] воркер разблокирован")
	}
}
