// Package partition делит список аккаунтов между параллельными воркерами.
package partition

import (
	"fmt"
	"time"

	"engage_go/pkg/pyrand"
)

// DailySeed — число YYYYMMDD по UTC-дате. Все воркеры одного дня получают
// одинаковый сид и одинаковое перемешивание.
func DailySeed(now time.Time) uint64 {
	y, m, d := now.UTC().Date()
	return uint64(y*10000 + int(m)*100 + d)
}

// Partition перемешивает копию items генератором с сидом seed и оставляет
// элементы, у которых idx % jobTotal == jobIndex. Исходный срез не меняется.
func Partition[T any](items []T, jobIndex, jobTotal int, seed uint64) ([]T, error) {
	if jobTotal < 1 {
		return nil, fmt.Errorf("некорректное количество воркеров: %d", jobTotal)
	}
	if jobIndex < 0 || jobIndex >= jobTotal {
		return nil, fmt.Errorf("индекс воркера %d вне диапазона [0, %d)", jobIndex, jobTotal)
	}

	shuffled := make([]T, len(items))
	copy(shuffled, items)
	pyrand.FromInt(seed).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	part := make([]T, 0, len(shuffled)/jobTotal+1)
	for idx, item := range shuffled {
		if idx%jobTotal == jobIndex {
			part = append(part, item)
		}
	}
	return part, nil
}
