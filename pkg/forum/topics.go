package forum

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"engage_go/models"
)

// ExcerptLimit — длина выдержки первого поста в символах.
const ExcerptLimit = 200

var htmlTag = regexp.MustCompile(`<[^>]+>`)

type latestResponse struct {
	Users []struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	} `json:"users"`
	TopicList struct {
		Topics []struct {
			ID                 int    `json:"id"`
			Title              string `json:"title"`
			CreatedAt          string `json:"created_at"`
			PostsCount         int    `json:"posts_count"`
			Pinned             bool   `json:"pinned"`
			PinnedGlobally     bool   `json:"pinned_globally"`
			Closed             bool   `json:"closed"`
			Archived           bool   `json:"archived"`
			CategoryID         int    `json:"category_id"`
			LastPosterUsername string `json:"last_poster_username"`
			Posters            []struct {
				UserID      int    `json:"user_id"`
				Description string `json:"description"`
			} `json:"posters"`
		} `json:"topics"`
	} `json:"topic_list"`
}

// Latest возвращает ленту последних тем. Автор темы вычисляется по списку
// posters и таблице users из того же ответа. Нераспознанная дата создания
// остаётся нулевой, такие темы отсеиваются при выборе.
func (c *Client) Latest(ctx context.Context) ([]models.Topic, error) {
	var payload latestResponse
	if err := c.getJSON(ctx, "/latest.json", &payload); err != nil {
		return nil, fmt.Errorf("лента тем: %w", err)
	}

	names := make(map[int]string, len(payload.Users))
	for _, u := range payload.Users {
		names[u.ID] = u.Username
	}

	topics := make([]models.Topic, 0, len(payload.TopicList.Topics))
	for _, t := range payload.TopicList.Topics {
		if t.ID == 0 {
			continue
		}
		topic := models.Topic{
			ID:             t.ID,
			Title:          t.Title,
			PostsCount:     t.PostsCount,
			Pinned:         t.Pinned,
			PinnedGlobally: t.PinnedGlobally,
			Closed:         t.Closed,
			Archived:       t.Archived,
			LastPoster:     t.LastPosterUsername,
			CategoryID:     t.CategoryID,
		}
		if created, err := time.Parse(time.RFC3339, t.CreatedAt); err == nil {
			topic.CreatedAt = created
		}
		for _, p := range t.Posters {
			if strings.Contains(p.Description, "Original Poster") {
				topic.OriginalPoster = names[p.UserID]
				break
			}
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

type topicResponse struct {
	ID         int `json:"id"`
	CategoryID int `json:"category_id"`
	PostStream struct {
		Posts []struct {
			ID       int    `json:"id"`
			Username string `json:"username"`
			Raw      string `json:"raw"`
			Cooked   string `json:"cooked"`
		} `json:"posts"`
	} `json:"post_stream"`
	Details struct {
		Participants []struct {
			Username string `json:"username"`
		} `json:"participants"`
	} `json:"details"`
}

// Topic читает тему: категорию, первый пост и список участников.
// Участники дополняются авторами постов первой страницы.
func (c *Client) Topic(ctx context.Context, id int) (models.TopicDetail, error) {
	var payload topicResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/t/%d.json", id), &payload); err != nil {
		return models.TopicDetail{}, fmt.Errorf("тема %d: %w", id, err)
	}

	detail := models.TopicDetail{ID: id, CategoryID: payload.CategoryID}
	seen := map[string]bool{}
	add := func(name string) {
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}
		seen[key] = true
		detail.Participants = append(detail.Participants, name)
	}
	for _, p := range payload.Details.Participants {
		add(p.Username)
	}

	posts := payload.PostStream.Posts
	if len(posts) > 0 {
		detail.FirstPostID = posts[0].ID
		content := posts[0].Raw
		if content == "" {
			content = posts[0].Cooked
		}
		detail.Excerpt = Excerpt(content)
	}
	for _, p := range posts {
		add(p.Username)
	}
	return detail, nil
}

// Excerpt убирает HTML-теги и обрезает текст до ExcerptLimit символов с "...".
func Excerpt(content string) string {
	content = strings.TrimSpace(htmlTag.ReplaceAllString(content, ""))
	r := []rune(content)
	if len(r) > ExcerptLimit {
		return string(r[:ExcerptLimit]) + "..."
	}
	return content
}

// HasParticipant проверяет участие пользователя без учёта регистра.
func HasParticipant(detail models.TopicDetail, username string) bool {
	for _, p := range detail.Participants {
		if strings.EqualFold(p, username) {
			return true
		}
	}
	return false
}
