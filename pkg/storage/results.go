package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"engage_go/models"
)

// SaveRunResult дублирует файл результата в базу.
func (db *DB) SaveRunResult(ctx context.Context, res models.RunResult) error {
	replies, err := json.Marshal(res.Replies)
	if err != nil {
		return fmt.Errorf("сериализация ответов: %w", err)
	}
	_, err = db.Conn.ExecContext(ctx,
		`INSERT INTO run_results (run_id, job_index, total, success, fail, replies)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (run_id) DO UPDATE SET total = EXCLUDED.total, success = EXCLUDED.success,
		     fail = EXCLUDED.fail, replies = EXCLUDED.replies`,
		res.RunID, res.JobIndex, res.Total, pq.Array(res.Success), pq.Array(res.Fail), string(replies),
	)
	return err
}

// RecentRunResults возвращает последние результаты, новые первыми.
func (db *DB) RecentRunResults(ctx context.Context, limit int) ([]models.RunResult, error) {
	rows, err := db.Conn.QueryContext(ctx,
		`SELECT run_id, job_index, total, success, fail, replies
		 FROM run_results ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RunResult
	for rows.Next() {
		var res models.RunResult
		var success, fail pq.StringArray
		var replies []byte
		if err := rows.Scan(&res.RunID, &res.JobIndex, &res.Total, &success, &fail, &replies); err != nil {
			return nil, err
		}
		res.Success = []string(success)
		res.Fail = []string(fail)
		if len(replies) > 0 {
			if err := json.Unmarshal(replies, &res.Replies); err != nil {
				return nil, fmt.Errorf("ответы запуска %s: %w", res.RunID, err)
			}
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
