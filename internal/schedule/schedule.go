// Package schedule решает, в какие дни недели и в какой из двух ежедневных
// запусков аккаунт активен. Все функции чистые: расписание пересчитывается из
// (имя, неделя), поэтому независимые воркеры сходятся без общей базы.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"engage_go/pkg/pyrand"
)

// Slot — один из двух ежедневных запусков.
type Slot string

const (
	Morning Slot = "morning"
	Evening Slot = "evening"
)

const (
	// ReplyDaysPerWeek — сколько дней в неделю аккаунт отвечает.
	ReplyDaysPerWeek = 2
	// Границы количества дней для дополнительных действий (закладки).
	ExtrasMinDays = 1
	ExtrasMaxDays = 3

	daysInWeek = 7
	// Запуски по UTC: 02:23 — утренний, 14:47 — вечерний.
	slotSplitHourUTC = 10
)

// Local — календарь, по которому считаются день недели и номер недели (UTC+8).
var Local = time.FixedZone("UTC+8", 8*60*60)

// AssignedSlot — закреплённый за аккаунтом запуск. Зависит только от имени,
// поэтому не меняется от недели к неделе.
func AssignedSlot(username string) Slot {
	if pyrand.MD5Parity(username) == 0 {
		return Morning
	}
	return Evening
}

// CurrentSlot определяет запуск по часу UTC.
func CurrentSlot(now time.Time) Slot {
	if now.UTC().Hour() < slotSplitHourUTC {
		return Morning
	}
	return Evening
}

// Weekday возвращает день недели 0=пн..6=вс в календаре Local.
func Weekday(now time.Time) int {
	return (int(now.In(Local).Weekday()) + 6) % 7
}

// Week возвращает номер ISO-недели в календаре Local.
func Week(now time.Time) int {
	_, week := now.In(Local).ISOWeek()
	return week
}

// ReplyDays — два дня ответов аккаунта на неделе, по возрастанию.
func ReplyDays(username string, week int) []int {
	rng := pyrand.FromMD5(fmt.Sprintf("%s:%d", username, week))
	return sampleDays(rng, ReplyDaysPerWeek)
}

// ExtrasDays — от одного до трёх дней дополнительных действий на неделе.
// Сид отличается от ReplyDays, чтобы наборы дней не совпадали систематически.
func ExtrasDays(username string, week int) []int {
	rng := pyrand.FromMD5(fmt.Sprintf("%s:extras:%d", username, week))
	count := rng.IntRange(ExtrasMinDays, ExtrasMaxDays)
	return sampleDays(rng, count)
}

func sampleDays(rng *pyrand.Random, count int) []int {
	if count > daysInWeek {
		count = daysInWeek
	}
	days := rng.Sample(daysInWeek, count)
	sort.Ints(days)
	return days
}

// Decision — развёрнутый ответ оракула, пригодный для логов и HTTP.
type Decision struct {
	Username     string `json:"username"`
	Week         int    `json:"week"`
	Weekday      int    `json:"weekday"`
	Days         []int  `json:"days"`
	AssignedSlot Slot   `json:"assigned_slot"`
	CurrentSlot  Slot   `json:"current_slot"`
	Active       bool   `json:"active"`
}

// Reason кратко описывает, почему решение отрицательное.
func (d Decision) Reason() string {
	switch {
	case d.Active:
		return "active"
	case !contains(d.Days, d.Weekday):
		return "not an active day"
	default:
		return "wrong run slot"
	}
}

func decide(username string, now time.Time, days func(string, int) []int) Decision {
	d := Decision{
		Username:     username,
		Week:         Week(now),
		Weekday:      Weekday(now),
		AssignedSlot: AssignedSlot(username),
		CurrentSlot:  CurrentSlot(now),
	}
	d.Days = days(username, d.Week)
	d.Active = contains(d.Days, d.Weekday) && d.AssignedSlot == d.CurrentSlot
	return d
}

// ReplyDecision — решение по ответам на момент now.
func ReplyDecision(username string, now time.Time) Decision {
	return decide(username, now, ReplyDays)
}

// ExtrasDecision — решение по дополнительным действиям на момент now.
func ExtrasDecision(username string, now time.Time) Decision {
	return decide(username, now, ExtrasDays)
}

// IsReplySlot сообщает, должен ли аккаунт отвечать в текущий запуск.
func IsReplySlot(username string, now time.Time) bool {
	return ReplyDecision(username, now).Active
}

// IsActiveToday сообщает, выполняются ли сегодня дополнительные действия.
func IsActiveToday(username string, now time.Time) bool {
	return ExtrasDecision(username, now).Active
}

func contains(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
