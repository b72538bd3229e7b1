// Package gemini подключает текстовую модель для генерации ответов.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// DefaultModel используется, если модель не задана явно.
const DefaultModel = "gemma-3-27b-it"

// DefaultRPM — бюджет запросов в минуту бесплатного тарифа.
const DefaultRPM = 15

// ErrEmptyResponse — модель не вернула текста.
var ErrEmptyResponse = errors.New("пустой ответ модели")

// Client вызывает модель с ограничением частоты запросов.
type Client struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
}

// New создаёт клиента. Пустой ключ считается ошибкой, вызывающий код тогда работает без модели.
func New(ctx context.Context, apiKey, model string, rpm int) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY не задан")
	}
	if model == "" {
		model = DefaultModel
	}
	if rpm <= 0 {
		rpm = DefaultRPM
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("клиент gemini: %w", err)
	}
	return &Client{
		client:  client,
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}, nil
}

// Model — имя используемой модели.
func (c *Client) Model() string { return c.model }

// Generate отправляет prompt и возвращает текст первого кандидата.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.model, err)
	}
	return firstText(result)
}

func firstText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
