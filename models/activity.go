package models

// Источник текста ответа.
const (
	ReplySourceAI   = "ai"
	ReplySourcePool = "pool"
)

// ReplyRecord создаётся только после подтверждённой публикации ответа
// и больше не меняется.
type ReplyRecord struct {
	Username   string `json:"username"`
	TopicID    int    `json:"topic_id"`
	TopicTitle string `json:"topic_title"`
	ReplyText  string `json:"reply_text"`
	Source     string `json:"source,omitempty"`
}
