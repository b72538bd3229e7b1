// Package summary собирает файлы результатов всех воркеров в один отчёт.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"engage_go/models"
)

// Шаблоны поиска относительно каталога: файлы лежат либо прямо в нём,
// либо по одному в подкаталогах артефактов.
var patterns = []string{"results_job_*.json", filepath.Join("*", "results_job_*.json")}

// Collect читает все файлы результатов под dir и объединяет их.
// Нечитаемый файл пропускается с предупреждением.
func Collect(dir string) (models.Summary, error) {
	sum := models.Summary{Success: []string{}, Fail: []string{}, Replies: []models.ReplyRecord{}}

	var paths []string
	for _, p := range patterns {
		found, err := filepath.Glob(filepath.Join(dir, p))
		if err != nil {
			return sum, fmt.Errorf("поиск результатов в %s: %w", dir, err)
		}
		paths = append(paths, found...)
	}
	sort.Strings(paths)

	for _, path := range paths {
		res, err := readResult(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("[SUMMARY] файл пропущен")
			continue
		}
		sum.Files++
		sum.Total += res.Total
		sum.Success = append(sum.Success, res.Success...)
		sum.Fail = append(sum.Fail, res.Fail...)
		sum.Replies = append(sum.Replies, res.Replies...)
		log.Info().
			Str("file", path).
			Int("success", len(res.Success)).
			Int("fail", len(res.Fail)).
			Int("replies", len(res.Replies)).
			Msg("[SUMMARY] загружен")
	}
	return sum, nil
}

func readResult(path string) (models.RunResult, error) {
	var res models.RunResult
	data, err := os.ReadFile(path)
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("разбор %s: %w", path, err)
	}
	return res, nil
}

// Headline — строка с итоговыми счётчиками.
func Headline(sum models.Summary) string {
	return fmt.Sprintf("Всего: %d | Успешно: %d | Ошибки: %d | Ответы: %d",
		sum.Total, len(sum.Success), len(sum.Fail), len(sum.Replies))
}

// Format собирает текст отчёта. baseURL нужен для ссылок на темы.
func Format(sum models.Summary, baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	var b strings.Builder
	b.WriteString(Headline(sum))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "✅ Успешно (%d):\n", len(sum.Success))
	writeNames(&b, sum.Success)
	fmt.Fprintf(&b, "\n❌ Ошибки (%d):\n", len(sum.Fail))
	writeNames(&b, sum.Fail)

	fmt.Fprintf(&b, "\n💬 Ответы (%d):\n", len(sum.Replies))
	if len(sum.Replies) == 0 {
		b.WriteString("  (нет)\n")
	}
	for _, r := range sum.Replies {
		fmt.Fprintf(&b, "  - %s -> %s (%s/t/%d)\n", r.Username, r.TopicTitle, baseURL, r.TopicID)
		fmt.Fprintf(&b, "    %q\n", r.ReplyText)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeNames(b *strings.Builder, names []string) {
	if len(names) == 0 {
		b.WriteString("  (нет)\n")
		return
	}
	for _, n := range names {
		fmt.Fprintf(b, "  - %s\n", n)
	}
}

// Notifier доставляет отчёт.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Send собирает отчёт из dir и отправляет его через n, если n задан.
// Пустой сбор (Total == 0) не отправляется.
func Send(ctx context.Context, dir, baseURL string, n Notifier) (models.Summary, string, error) {
	sum, err := Collect(dir)
	if err != nil {
		return sum, "", err
	}
	if sum.Total == 0 {
		log.Warn().Str("dir", dir).Msg("[SUMMARY] результаты не найдены")
		return sum, "", nil
	}
	text := Format(sum, baseURL)
	log.Info().Msg("[SUMMARY] " + Headline(sum))
	if n == nil {
		return sum, text, nil
	}
	if err := n.Notify(ctx, text); err != nil {
		return sum, text, fmt.Errorf("отправка отчёта: %w", err)
	}
	return sum, text, nil
}
