package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"engage_go/internal/backoff"
	"engage_go/internal/common"
	"engage_go/internal/metrics"
	"engage_go/internal/reply"
	"engage_go/internal/schedule"
	"engage_go/internal/selection"
	"engage_go/models"
	"engage_go/pkg/forum"
)

const likeBeforeReplyChance = 0.80

// replyPhase решает, отвечать ли аккаунту сейчас, и публикует ответ.
// Возвращает nil без ошибки, если ответа не было по нормальной причине.
// Ошибкой наверх уходит только лимит запросов или отмена контекста.
func (r *Runner) replyPhase(ctx context.Context, sess Session, p *common.Personality, username string, now time.Time, coord *selection.Coordinator) (*models.ReplyRecord, error) {
	if r.ForceReply {
		log.Info().Str("account", username).Msg("[REPLY] принудительный режим, расписание не проверяется")
	} else if d := schedule.ReplyDecision(username, now); !d.Active {
		log.Info().
			Str("account", username).
			Ints("days", d.Days).
			Int("today", d.Weekday).
			Str("assigned", string(d.AssignedSlot)).
			Str("current", string(d.CurrentSlot)).
			Msgf("[REPLY] не отвечаем: %s", d.Reason())
		return nil, nil
	}

	// токен после логина мог устареть за время просмотра
	if _, err := sess.RefreshCSRF(ctx); err != nil {
		if hard(err) {
			return nil, err
		}
		log.Warn().Err(err).Str("account", username).Msg("[REPLY] не удалось обновить csrf, ответ пропущен")
		return nil, nil
	}

	candidates, err := sess.Latest(ctx)
	if err != nil {
		if hard(err) {
			return nil, err
		}
		log.Warn().Err(err).Str("account", username).Msg("[REPLY] лента тем недоступна")
		return nil, nil
	}

	target, err := coord.SelectTarget(ctx, username, sess, candidates)
	if errors.Is(err, selection.ErrNoTarget) {
		log.Info().Str("account", username).Msg("[REPLY] подходящей темы нет")
		metrics.RepliesSkipped.WithLabelValues("no_target").Inc()
		return nil, nil
	}
	if err != nil {
		if hard(err) {
			return nil, err
		}
		log.Warn().Err(err).Str("account", username).Msg("[REPLY] выбор темы не удался")
		return nil, nil
	}
	topic := target.Topic
	log.Info().Str("account", username).Int("topic", topic.ID).Str("title", topic.Title).Msg("[REPLY] выбрана тема")

	res, err := r.Generator.Generate(ctx, reply.Input{
		Title:      topic.Title,
		Excerpt:    target.Detail.Excerpt,
		CategoryID: target.Detail.CategoryID,
	}, r.State.Phrases)
	if errors.Is(err, reply.ErrSkip) {
		log.Info().Str("account", username).Int("topic", topic.ID).Msg("[REPLY] тема отклонена моделью")
		metrics.RepliesSkipped.WithLabelValues("skip").Inc()
		return nil, nil
	}
	if err != nil {
		if hard(err) {
			return nil, err
		}
		log.Warn().Err(err).Str("account", username).Msg("[REPLY] текст не подобран")
		return nil, nil
	}

	if err := r.readBeforeReply(ctx, sess, p, username, target.Detail); err != nil {
		return nil, err
	}

	rnd := p.Rand()
	opts := forum.PostOptions{
		TypingMillis:   5000 + rnd.Intn(10001),
		ComposerMillis: 10000 + rnd.Intn(20001),
	}
	if err := r.Sleeper.Sleep(ctx, time.Duration(opts.ComposerMillis)*time.Millisecond); err != nil {
		return nil, err
	}

	postID, err := sess.CreatePost(ctx, topic.ID, res.Text, opts)
	if err != nil {
		if hard(err) {
			return nil, err
		}
		log.Error().Err(err).Str("account", username).Int("topic", topic.ID).Msg("[REPLY] публикация не удалась")
		return nil, nil
	}

	rec := &models.ReplyRecord{
		Username:   username,
		TopicID:    topic.ID,
		TopicTitle: topic.Title,
		ReplyText:  res.Text,
		Source:     res.Source,
	}
	log.Info().Str("account", username).Int("topic", topic.ID).Int("post", postID).Str("source", res.Source).Msg("[REPLY] ответ опубликован")
	metrics.RepliesPosted.WithLabelValues(res.Source).Inc()

	if err := r.State.MarkReplied(ctx, topic.ID, res.Text); err != nil {
		log.Warn().Err(err).Msg("[REPLY] не удалось отметить тему как занятую")
	}
	if r.Store != nil {
		err := backoff.Retry(ctx, "save-reply", func() error { return r.Store.SaveReply(ctx, r.RunID, *rec) })
		if err != nil {
			log.Warn().Err(err).Str("account", username).Msg("[DB] ответ не сохранён в истории")
		}
	}
	return rec, nil
}

// readBeforeReply читает тему перед ответом и с вероятностью 0.8 лайкает первый пост.
func (r *Runner) readBeforeReply(ctx context.Context, sess Session, p *common.Personality, username string, detail models.TopicDetail) error {
	if _, err := p.Pause(ctx, 2, 5); err != nil {
		return err
	}
	scrolls := 2 + p.Rand().Intn(3)
	for i := 0; i < scrolls; i++ {
		if _, err := p.Pause(ctx, 1.5, 4); err != nil {
			return err
		}
	}
	if _, err := p.Pause(ctx, 1, 2); err != nil {
		return err
	}

	if detail.FirstPostID == 0 || !p.Chance(likeBeforeReplyChance) {
		return nil
	}
	liked, err := sess.Like(ctx, detail.FirstPostID)
	if err != nil {
		if hard(err) {
			return err
		}
		log.Warn().Err(err).Str("account", username).Msg("[REPLY] лайк перед ответом не удался")
		return nil
	}
	if liked {
		metrics.Likes.Inc()
		_, err = p.Pause(ctx, 0.8, 2)
	}
	return err
}

// hard — ошибки, которые прерывают обработку аккаунта.
func hard(err error) bool {
	if _, ok := forum.AsRateLimit(err); ok {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
