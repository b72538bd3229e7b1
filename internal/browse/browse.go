// Package browse реализует просмотр тем и дополнительные действия по расписанию.
package browse

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"engage_go/internal/common"
	"engage_go/models"
	"engage_go/pkg/forum"
)

// Forum — то, что нужно просмотру от сессии аккаунта.
type Forum interface {
	Latest(ctx context.Context) ([]models.Topic, error)
	Topic(ctx context.Context, id int) (models.TopicDetail, error)
	Like(ctx context.Context, postID int) (bool, error)
	Bookmark(ctx context.Context, postID int) error
	Bookmarks(ctx context.Context, username string) ([]models.Bookmark, error)
	Visit(ctx context.Context, path string) error
}

const (
	minTopics = 3
	maxTopics = 8

	sideBeforeChance = 0.20
	sideAfterChance  = 0.15
	bailChance       = 0.10
	earlyExitChance  = 0.05
)

// SidePages — страницы, которые иногда открываются до или после просмотра.
var SidePages = []string{"/notifications.json", "/categories.json", "/latest.json", "/top.json"}

// Когда ставить лайк при чтении темы. Четыре "none" из семи вариантов.
type likeTiming int

const (
	likeNone likeTiming = iota
	likeBefore
	likeDuring
	likeAfter
)

var likeTimings = []likeTiming{likeBefore, likeDuring, likeAfter, likeNone, likeNone, likeNone, likeNone}

// Stats — итог просмотра.
type Stats struct {
	Read  int
	Liked int
}

// Browser выполняет просмотр от имени одного аккаунта.
type Browser struct {
	Forum    Forum
	P        *common.Personality
	Username string
}

// soft проглатывает ошибку отдельного действия. Лимит запросов и отмена
// контекста возвращаются наверх.
func (b *Browser) soft(err error, action string) error {
	if err == nil {
		return nil
	}
	if _, ok := forum.AsRateLimit(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	log.Warn().Err(err).Str("account", b.Username).Str("action", action).Msg("[BROWSE] действие не удалось")
	return nil
}

// Browse открывает ленту, читает от 3 до 8 случайных тем и иногда заглядывает
// на побочные страницы.
func (b *Browser) Browse(ctx context.Context) (Stats, error) {
	var st Stats
	if b.P.Chance(sideBeforeChance) {
		if err := b.VisitSidePage(ctx); err != nil {
			return st, err
		}
	}

	topics, err := b.Forum.Latest(ctx)
	if err != nil {
		return st, b.soft(err, "latest")
	}
	if len(topics) == 0 {
		log.Warn().Str("account", b.Username).Msg("[BROWSE] лента пуста")
		return st, nil
	}
	if _, err := b.P.Pause(ctx, 2, 5); err != nil {
		return st, err
	}

	rnd := b.P.Rand()
	count := minTopics + rnd.Intn(maxTopics-minTopics+1)
	if count > len(topics) {
		count = len(topics)
	}
	order := rnd.Perm(len(topics))[:count]
	log.Info().Str("account", b.Username).Msgf("[BROWSE] в ленте %d тем, читаем %d", len(topics), count)

	for i, idx := range order {
		liked, err := b.ReadTopic(ctx, topics[idx].ID)
		if err != nil {
			return st, err
		}
		st.Read++
		if liked {
			st.Liked++
		}
		if i < count-1 {
			if _, err := b.P.Pause(ctx, 3, 10); err != nil {
				return st, err
			}
		}
	}

	if b.P.Chance(sideAfterChance) {
		if err := b.VisitSidePage(ctx); err != nil {
			return st, err
		}
	}
	log.Info().Str("account", b.Username).Int("read", st.Read).Int("liked", st.Liked).Msg("[BROWSE] просмотр завершён")
	return st, nil
}

// ReadTopic читает тему с паузами и по случаю лайкает первый пост.
// Возвращает true, если лайк поставлен.
func (b *Browser) ReadTopic(ctx context.Context, id int) (bool, error) {
	detail, err := b.Forum.Topic(ctx, id)
	if err != nil {
		return false, b.soft(err, "topic")
	}

	if b.P.Chance(bailChance) {
		_, err := b.P.Pause(ctx, 1, 3)
		return false, err
	}

	rnd := b.P.Rand()
	timing := likeTimings[rnd.Intn(len(likeTimings))]
	liked := false
	like := func() error {
		ok, err := b.like(ctx, detail.FirstPostID)
		liked = liked || ok
		return err
	}

	if timing == likeBefore {
		if err := like(); err != nil {
			return liked, err
		}
	}

	if _, err := b.P.Pause(ctx, 2, 6); err != nil {
		return liked, err
	}
	scrolls := 5 + rnd.Intn(11)
	likeAt := -1
	if timing == likeDuring {
		likeAt = 2 + rnd.Intn(scrolls-2)
	}
	for i := 0; i < scrolls; i++ {
		if i == likeAt {
			if err := like(); err != nil {
				return liked, err
			}
		}
		if b.P.Chance(earlyExitChance) {
			break
		}
		lo, hi := 2.0, 5.0
		switch r := rnd.Float64(); {
		case r < 0.2:
			lo, hi = 5, 12
		case r < 0.44:
			lo, hi = 1, 2
		}
		if _, err := b.P.Pause(ctx, lo, hi); err != nil {
			return liked, err
		}
	}

	if timing == likeAfter {
		if err := like(); err != nil {
			return liked, err
		}
	}
	return liked, nil
}

func (b *Browser) like(ctx context.Context, postID int) (bool, error) {
	if postID == 0 {
		return false, nil
	}
	ok, err := b.Forum.Like(ctx, postID)
	if err != nil {
		return false, b.soft(err, "like")
	}
	if !ok {
		log.Debug().Str("account", b.Username).Int("post", postID).Msg("[BROWSE] пост уже лайкнут")
		return false, nil
	}
	_, err = b.P.Pause(ctx, 1, 2)
	return true, err
}

// VisitSidePage открывает одну случайную побочную страницу.
func (b *Browser) VisitSidePage(ctx context.Context) error {
	path := SidePages[b.P.Rand().Intn(len(SidePages))]
	log.Info().Str("account", b.Username).Str("page", path).Msg("[BROWSE] побочная страница")
	if err := b.Forum.Visit(ctx, path); err != nil {
		return b.soft(err, "visit")
	}
	if _, err := b.P.Pause(ctx, 3, 8); err != nil {
		return err
	}
	if b.P.Chance(0.5) {
		if _, err := b.P.Pause(ctx, 2, 5); err != nil {
			return err
		}
	}
	_, err := b.P.Pause(ctx, 2, 4)
	return err
}
