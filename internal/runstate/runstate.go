// Package runstate хранит общие для запуска множества: темы, в которые уже
// ответили, и уже использованные фразы.
package runstate

import (
	"context"
	"strconv"
)

// UsedSet — множество уже использованных значений.
type UsedSet interface {
	Contains(ctx context.Context, val string) (bool, error)
	Add(ctx context.Context, val string) error
}

// Run — состояние, разделяемое аккаунтами одного запуска.
type Run struct {
	Topics  UsedSet
	Phrases UsedSet
}

// NewMemoryRun — область видимости одного воркера.
func NewMemoryRun() *Run {
	return &Run{Topics: NewMemUsedSet(), Phrases: NewMemUsedSet()}
}

// TopicUsed проверяет, отвечал ли уже кто-то в теме.
func (r *Run) TopicUsed(ctx context.Context, id int) (bool, error) {
	return r.Topics.Contains(ctx, strconv.Itoa(id))
}

// MarkReplied фиксирует тему и фразу после подтверждённой публикации.
func (r *Run) MarkReplied(ctx context.Context, topicID int, phrase string) error {
	if err := r.Topics.Add(ctx, strconv.Itoa(topicID)); err != nil {
		return err
	}
	return r.Phrases.Add(ctx, phrase)
}

// MemUsedSet — множество в памяти. Воркер обрабатывает аккаунты строго
// последовательно, поэтому блокировок нет.
type MemUsedSet struct {
	vals map[string]struct{}
}

func NewMemUsedSet() *MemUsedSet {
	return &MemUsedSet{vals: make(map[string]struct{})}
}

func (s *MemUsedSet) Contains(_ context.Context, val string) (bool, error) {
	_, ok := s.vals[val]
	return ok, nil
}

func (s *MemUsedSet) Add(_ context.Context, val string) error {
	s.vals[val] = struct{}{}
	return nil
}

// Len — размер множества.
func (s *MemUsedSet) Len() int {
	return len(s.vals)
}
