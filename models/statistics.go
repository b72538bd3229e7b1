package models

// RunResult — файл результата одного воркера. Единственная передача данных
// в шаг агрегации, поэтому поля совпадают с тем, что он ожидает.
type RunResult struct {
	JobIndex int           `json:"job_index"`
	RunID    string        `json:"run_id,omitempty"`
	Total    int           `json:"total"`
	Success  []string      `json:"success"`
	Fail     []string      `json:"fail"`
	Replies  []ReplyRecord `json:"replied_accounts"`
}

// Summary — объединённые результаты всех воркеров.
type Summary struct {
	Files   int
	Total   int
	Success []string
	Fail    []string
	Replies []ReplyRecord
}
