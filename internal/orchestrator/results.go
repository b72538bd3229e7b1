package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"engage_go/models"
)

// ResultFileName — имя файла результата воркера.
func ResultFileName(jobIndex int) string {
	return fmt.Sprintf("results_job_%d.json", jobIndex)
}

// WriteResult записывает результат атомарно: во временный файл, затем rename.
func WriteResult(dir string, res models.RunResult) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return "", err
	}

	path := filepath.Join(dir, ResultFileName(res.JobIndex))
	tmp, err := os.CreateTemp(dir, ".results_job_*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}
