// Package selection выбирает тему для ответа и не даёт нескольким аккаунтам
// запуска попасть в одну тему.
package selection

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"engage_go/internal/runstate"
	"engage_go/models"
	"engage_go/pkg/forum"
)

const (
	// MaxTopicAge — темы старше отбрасываются.
	MaxTopicAge = 3 * 24 * time.Hour
	// MaxPostsCount — мегатреды не подходят.
	MaxPostsCount = 100
	// MaxAttempts — число кандидатов, проверяемых за один выбор.
	MaxAttempts = 3
)

// ErrNoTarget — подходящей темы нет. Это нормальный исход, ответ пропускается.
var ErrNoTarget = errors.New("нет подходящей темы")

// BusyAuthors строит множество имён ростера в нижнем регистре.
func BusyAuthors(accounts []models.Account) map[string]struct{} {
	out := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		if a.Username != "" {
			out[strings.ToLower(a.Username)] = struct{}{}
		}
	}
	return out
}

func isBusy(busy map[string]struct{}, name string) bool {
	if name == "" {
		return false
	}
	_, ok := busy[strings.ToLower(name)]
	return ok
}

// Eligible оставляет темы, в которые вообще допустимо отвечать.
func Eligible(candidates []models.Topic, busy map[string]struct{}, now time.Time) []models.Topic {
	out := make([]models.Topic, 0, len(candidates))
	for _, t := range candidates {
		switch {
		case t.Pinned || t.PinnedGlobally:
		case isBusy(busy, t.OriginalPoster) || isBusy(busy, t.LastPoster):
		case t.CreatedAt.IsZero() || now.Sub(t.CreatedAt) > MaxTopicAge:
		case t.PostsCount > MaxPostsCount:
		case t.Closed || t.Archived:
		default:
			out = append(out, t)
		}
	}
	return out
}

// Select применяет фильтр, исключает excluded и выбирает тему равновероятно.
func Select(candidates []models.Topic, excluded map[int]bool, busy map[string]struct{}, now time.Time, rnd *rand.Rand) (models.Topic, bool) {
	pool := make([]models.Topic, 0, len(candidates))
	for _, t := range Eligible(candidates, busy, now) {
		if !excluded[t.ID] {
			pool = append(pool, t)
		}
	}
	if len(pool) == 0 {
		return models.Topic{}, false
	}
	return pool[rnd.Intn(len(pool))], true
}

// TopicReader читает тему от имени аккаунта.
type TopicReader interface {
	Topic(ctx context.Context, id int) (models.TopicDetail, error)
}

// ReplyHistory — постоянная история ответов между запусками.
type ReplyHistory interface {
	HasReply(ctx context.Context, username string, topicID int) (bool, error)
}

// Target — выбранная тема вместе с её содержимым.
type Target struct {
	Topic  models.Topic
	Detail models.TopicDetail
}

// Coordinator выбирает темы с учётом общего состояния запуска.
type Coordinator struct {
	Run     *runstate.Run
	History ReplyHistory
	Busy    map[string]struct{}
	Rand    *rand.Rand
	Now     func() time.Time
}

// SelectTarget делает до MaxAttempts попыток: выбирает тему, не занятую
// другими аккаунтами запуска, и проверяет, что аккаунт в ней ещё не отвечал.
// Ошибка лимита запросов возвращается как есть.
func (c *Coordinator) SelectTarget(ctx context.Context, username string, reader TopicReader, candidates []models.Topic) (Target, error) {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}

	excluded := make(map[int]bool)
	for _, t := range candidates {
		used, err := c.Run.TopicUsed(ctx, t.ID)
		if err != nil {
			return Target{}, fmt.Errorf("проверка занятых тем: %w", err)
		}
		if used {
			excluded[t.ID] = true
		}
	}

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		topic, ok := Select(candidates, excluded, c.Busy, now, c.Rand)
		if !ok {
			break
		}
		excluded[topic.ID] = true

		detail, err := reader.Topic(ctx, topic.ID)
		if err != nil {
			if _, limited := forum.AsRateLimit(err); limited {
				return Target{}, err
			}
			log.Warn().Err(err).Str("account", username).Int("topic", topic.ID).Msg("[REPLY] не удалось прочитать тему")
			continue
		}
		if forum.HasParticipant(detail, username) {
			log.Info().Str("account", username).Int("topic", topic.ID).Msgf("[REPLY] уже участвует в теме, попытка %d/%d", attempt, MaxAttempts)
			continue
		}
		if c.History != nil {
			replied, err := c.History.HasReply(ctx, username, topic.ID)
			if err != nil {
				log.Warn().Err(err).Str("account", username).Msg("[REPLY] не удалось проверить историю ответов")
			} else if replied {
				log.Info().Str("account", username).Int("topic", topic.ID).Msgf("[REPLY] ответ уже есть в истории, попытка %d/%d", attempt, MaxAttempts)
				continue
			}
		}
		return Target{Topic: topic, Detail: detail}, nil
	}
	return Target{}, ErrNoTarget
}
