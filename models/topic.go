package models

import "time"

// Topic — кандидат для ответа из ленты последних тем.
// После получения не изменяется, только фильтруется.
type Topic struct {
	ID             int       `json:"id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	PostsCount     int       `json:"posts_count"`
	Pinned         bool      `json:"pinned"`
	PinnedGlobally bool      `json:"pinned_globally"`
	Closed         bool      `json:"closed"`
	Archived       bool      `json:"archived"`
	OriginalPoster string    `json:"original_poster"`
	LastPoster     string    `json:"last_poster"`
	CategoryID     int       `json:"category_id"`
}

// TopicDetail — данные страницы темы, нужные для проверки участия и генерации текста.
type TopicDetail struct {
	ID           int      `json:"id"`
	CategoryID   int      `json:"category_id"`
	FirstPostID  int      `json:"first_post_id"`
	Excerpt      string   `json:"excerpt"`
	Participants []string `json:"participants"`
}

// Bookmark — сохранённая тема пользователя.
type Bookmark struct {
	ID      int    `json:"id"`
	TopicID int    `json:"topic_id"`
	PostID  int    `json:"post_id"`
	Title   string `json:"title"`
}
