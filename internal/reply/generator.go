// Package reply подбирает текст ответа: сначала модель, затем запасные фразы.
package reply

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"engage_go/internal/runstate"
	"engage_go/models"
)

// ErrSkip — модель сочла тему неподходящей. Тема пропускается без запасной фразы.
var ErrSkip = errors.New("модель отказалась отвечать на тему")

// MinModelReply — более короткий ответ модели считается отсутствующим.
const MinModelReply = 5

// TextModel — генеративная модель.
type TextModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Input — сведения о теме для генерации.
type Input struct {
	Title      string
	Excerpt    string
	CategoryID int
}

// Result — выбранный текст и его источник.
type Result struct {
	Text   string
	Source string
}

// Generator собирает ответ. Model может быть nil.
type Generator struct {
	Model      TextModel
	Pool       []string
	Categories map[int]string
	Rand       *rand.Rand
}

// NewGenerator создаёт генератор с фразами и категориями по умолчанию.
func NewGenerator(model TextModel, rnd *rand.Rand) *Generator {
	return &Generator{Model: model, Pool: DefaultPool, Categories: DefaultCategories, Rand: rnd}
}

// BuildPrompt формирует запрос к модели. Пустые выдержка и категория опускаются.
func BuildPrompt(title, excerpt, category string) string {
	var sb strings.Builder
	sb.WriteString("你是一个热心的技术论坛用户。")
	if category != "" {
		fmt.Fprintf(&sb, "这是一个发布在【%s】板块的帖子。", category)
	}
	fmt.Fprintf(&sb, "请根据帖子标题《%s》，", title)
	if excerpt != "" {
		fmt.Fprintf(&sb, "\n帖子内容摘要：%s\n", excerpt)
	}
	sb.WriteString("写一句简短、自然、友善的中文评论。" +
		"要求：1. 不要带引号 2. 不要是机器人口吻 " +
		"3. 字数在 10-30 字之间 4. 可以适当带一点幽默或鼓励 " +
		"5. 如果帖子内容包含强烈的负面情绪（如愤怒、悲伤、抱怨、骂人），" +
		"请只输出 SKIP（不要回复这种帖子）。" +
		"只输出评论内容，不要有任何前缀或解释。")
	return sb.String()
}

// clean убирает пробелы и кавычки по краям.
func clean(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// fromModel возвращает текст модели, ErrSkip или пустую строку, если модель
// недоступна или ответила слишком коротко.
func (g *Generator) fromModel(ctx context.Context, in Input) (string, error) {
	if g.Model == nil {
		return "", nil
	}
	prompt := BuildPrompt(in.Title, in.Excerpt, g.Categories[in.CategoryID])
	raw, err := g.Model.Generate(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn().Err(err).Msg("[REPLY] модель недоступна, берём запасную фразу")
		return "", nil
	}
	text := clean(raw)
	if strings.HasPrefix(strings.ToUpper(text), "SKIP") {
		return "", ErrSkip
	}
	if utf8.RuneCountInString(text) < MinModelReply {
		return "", nil
	}
	return text, nil
}

// Generate возвращает ответ модели или фразу из пула, по возможности ещё
// не использованную в этом запуске.
func (g *Generator) Generate(ctx context.Context, in Input, used runstate.UsedSet) (Result, error) {
	text, err := g.fromModel(ctx, in)
	if err != nil {
		return Result{}, err
	}
	if text != "" {
		return Result{Text: text, Source: models.ReplySourceAI}, nil
	}

	phrase, err := g.pick(ctx, used)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: phrase, Source: models.ReplySourcePool}, nil
}

func (g *Generator) pick(ctx context.Context, used runstate.UsedSet) (string, error) {
	if len(g.Pool) == 0 {
		return "", errors.New("пул фраз пуст")
	}
	available := make([]string, 0, len(g.Pool))
	for _, p := range g.Pool {
		if used != nil {
			taken, err := used.Contains(ctx, p)
			if err != nil {
				log.Warn().Err(err).Msg("[REPLY] не удалось проверить использованные фразы")
			} else if taken {
				continue
			}
		}
		available = append(available, p)
	}
	if len(available) == 0 {
		available = g.Pool
	}
	return available[g.Rand.Intn(len(available))], nil
}
