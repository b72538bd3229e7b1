package browse

import (
	"context"

	"github.com/rs/zerolog/log"
)

const (
	maxRevisits = 2
	// minBookmarks — при меньшем числе закладок добавляется новая.
	minBookmarks = 3
)

// ExtrasStats — итог дополнительных действий.
type ExtrasStats struct {
	Revisited  int
	Bookmarked int
}

// Extras перечитывает до двух сохранённых тем и, если закладок мало,
// сохраняет одну свежую тему.
func (b *Browser) Extras(ctx context.Context) (ExtrasStats, error) {
	var st ExtrasStats

	marks, err := b.Forum.Bookmarks(ctx, b.Username)
	if err != nil {
		return st, b.soft(err, "bookmarks")
	}

	rnd := b.P.Rand()
	revisits := len(marks)
	if revisits > maxRevisits {
		revisits = maxRevisits
	}
	for _, idx := range rnd.Perm(len(marks))[:revisits] {
		log.Info().Str("account", b.Username).Int("topic", marks[idx].TopicID).Msg("[EXTRAS] перечитываем закладку")
		if _, err := b.ReadTopic(ctx, marks[idx].TopicID); err != nil {
			return st, err
		}
		st.Revisited++
	}

	if len(marks) >= minBookmarks {
		return st, nil
	}

	topics, err := b.Forum.Latest(ctx)
	if err != nil {
		return st, b.soft(err, "latest")
	}
	saved := make(map[int]bool, len(marks))
	for _, m := range marks {
		saved[m.TopicID] = true
	}
	var options []int
	for _, t := range topics {
		if !t.Pinned && !t.PinnedGlobally && !saved[t.ID] {
			options = append(options, t.ID)
		}
	}
	if len(options) == 0 {
		return st, nil
	}

	id := options[rnd.Intn(len(options))]
	detail, err := b.Forum.Topic(ctx, id)
	if err != nil {
		return st, b.soft(err, "topic")
	}
	if detail.FirstPostID == 0 {
		return st, nil
	}
	if _, err := b.P.Pause(ctx, 2, 5); err != nil {
		return st, err
	}
	if err := b.Forum.Bookmark(ctx, detail.FirstPostID); err != nil {
		return st, b.soft(err, "bookmark")
	}
	st.Bookmarked++
	log.Info().Str("account", b.Username).Int("topic", id).Msg("[EXTRAS] тема добавлена в закладки")
	return st, nil
}
