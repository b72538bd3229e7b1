package forum

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"engage_go/models"
)

const likeActionType = 2

// PostOptions — метаданные набора, которые форум принимает вместе с ответом.
type PostOptions struct {
	TypingMillis   int
	ComposerMillis int
}

// CreatePost публикует ответ в теме и возвращает id нового поста.
// Запрос уходит ровно один раз, транспорт его не повторяет.
func (c *Client) CreatePost(ctx context.Context, topicID int, raw string, opts PostOptions) (int, error) {
	payload := map[string]interface{}{
		"raw":                          raw,
		"topic_id":                     topicID,
		"typing_duration_msecs":        opts.TypingMillis,
		"composer_open_duration_msecs": opts.ComposerMillis,
		"nested_post":                  true,
	}
	var resp struct {
		ID   int `json:"id"`
		Post *struct {
			ID int `json:"id"`
		} `json:"post"`
	}
	if err := c.postJSON(withoutRetry(ctx), "/posts.json", payload, &resp); err != nil {
		return 0, fmt.Errorf("ответ в тему %d: %w", topicID, err)
	}
	if resp.ID == 0 && resp.Post != nil {
		resp.ID = resp.Post.ID
	}
	return resp.ID, nil
}

// Like ставит лайк посту. Повторный лайк форум отклоняет с 403, это не ошибка.
func (c *Client) Like(ctx context.Context, postID int) (bool, error) {
	form := url.Values{}
	form.Set("id", strconv.Itoa(postID))
	form.Set("post_action_type_id", strconv.Itoa(likeActionType))
	err := c.postForm(ctx, "/post_actions.json", form, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusForbidden {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("лайк поста %d: %w", postID, err)
	}
	return true, nil
}

// Bookmark добавляет пост в закладки.
func (c *Client) Bookmark(ctx context.Context, postID int) error {
	form := url.Values{}
	form.Set("bookmarkable_id", strconv.Itoa(postID))
	form.Set("bookmarkable_type", "Post")
	if err := c.postForm(ctx, "/bookmarks.json", form, nil); err != nil {
		return fmt.Errorf("закладка поста %d: %w", postID, err)
	}
	return nil
}

// Bookmarks возвращает закладки пользователя.
func (c *Client) Bookmarks(ctx context.Context, username string) ([]models.Bookmark, error) {
	var payload struct {
		List struct {
			Bookmarks []struct {
				ID             int    `json:"id"`
				TopicID        int    `json:"topic_id"`
				BookmarkableID int    `json:"bookmarkable_id"`
				Title          string `json:"title"`
				FancyTitle     string `json:"fancy_title"`
			} `json:"bookmarks"`
		} `json:"user_bookmark_list"`
	}
	path := "/u/" + url.PathEscape(username) + "/bookmarks.json"
	if err := c.getJSON(ctx, path, &payload); err != nil {
		// у пользователя без закладок форум отвечает 404
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("закладки %s: %w", username, err)
	}
	out := make([]models.Bookmark, 0, len(payload.List.Bookmarks))
	for _, b := range payload.List.Bookmarks {
		title := b.Title
		if title == "" {
			title = b.FancyTitle
		}
		out = append(out, models.Bookmark{ID: b.ID, TopicID: b.TopicID, PostID: b.BookmarkableID, Title: title})
	}
	return out, nil
}

// Visit открывает страницу только на чтение и отбрасывает ответ.
func (c *Client) Visit(ctx context.Context, path string) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
