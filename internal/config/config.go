// Package config разбирает ростер аккаунтов и параметры воркера.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"engage_go/models"
)

var (
	// ErrNoAccounts — ростер не задан ни списком, ни парой логин/пароль.
	ErrNoAccounts = errors.New("аккаунты не настроены: задайте ACCOUNTS_JSON или LINUXDO_USERNAME/LINUXDO_PASSWORD")
	// ErrBadRoster — ACCOUNTS_JSON не разбирается.
	ErrBadRoster = errors.New("некорректный ACCOUNTS_JSON")
)

// Roster возвращает список аккаунтов. Приоритет у непустого accountsJSON;
// иначе используется одиночная пара username/password.
// Записи без имени или пароля не отбрасываются: воркер учтёт их как неудачные.
func Roster(accountsJSON, username, password string) ([]models.Account, error) {
	if raw := strings.TrimSpace(accountsJSON); raw != "" {
		var accounts []models.Account
		if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRoster, err)
		}
		if len(accounts) > 0 {
			log.Info().Int("accounts", len(accounts)).Msg("[CONFIG] ростер из ACCOUNTS_JSON")
			return accounts, nil
		}
	}

	if username != "" && password != "" {
		log.Info().Str("account", username).Msg("[CONFIG] одиночный аккаунт из переменных окружения")
		return []models.Account{{Username: username, Password: password}}, nil
	}
	return nil, ErrNoAccounts
}

// Worker — позиция воркера в разбиении.
type Worker struct {
	Index int
	Total int
}

// Validate проверяет 0 <= Index < Total.
func (w Worker) Validate() error {
	if w.Total < 1 {
		return fmt.Errorf("JOB_TOTAL должен быть положительным, получено %d", w.Total)
	}
	if w.Index < 0 || w.Index >= w.Total {
		return fmt.Errorf("JOB_INDEX %d вне диапазона [0, %d)", w.Index, w.Total)
	}
	return nil
}
