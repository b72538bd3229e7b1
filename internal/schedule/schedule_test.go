package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usernames() []string {
	names := []string{"", "alice", "bob", "Пользователь", "user_with_long_name_0123456789"}
	for i := 0; i < 40; i++ {
		names = append(names, fmt.Sprintf("acc%03d", i))
	}
	return names
}

func assertDaySet(t *testing.T, days []int) {
	t.Helper()
	seen := map[int]bool{}
	for _, d := range days {
		assert.True(t, d >= 0 && d <= 6, "day %d out of range", d)
		assert.False(t, seen[d], "duplicate day %d", d)
		seen[d] = true
	}
	for i := 1; i < len(days); i++ {
		assert.Less(t, days[i-1], days[i])
	}
}

func TestReplyDaysCardinalityAndDeterminism(t *testing.T) {
	for _, name := range usernames() {
		for week := 1; week <= 53; week++ {
			days := ReplyDays(name, week)
			require.Len(t, days, ReplyDaysPerWeek)
			assertDaySet(t, days)
			assert.Equal(t, days, ReplyDays(name, week))
		}
	}
}

func TestExtrasDaysCardinality(t *testing.T) {
	for _, name := range usernames() {
		for week := 1; week <= 53; week++ {
			days := ExtrasDays(name, week)
			assert.GreaterOrEqual(t, len(days), ExtrasMinDays)
			assert.LessOrEqual(t, len(days), ExtrasMaxDays)
			assertDaySet(t, days)
			assert.Equal(t, days, ExtrasDays(name, week))
		}
	}
}

func TestActiveDaysRotateAcrossWeeks(t *testing.T) {
	distinct := map[string]bool{}
	for week := 1; week <= 53; week++ {
		distinct[fmt.Sprint(ReplyDays("alice", week))] = true
	}
	assert.Greater(t, len(distinct), 1)
}

func TestAssignedSlotStable(t *testing.T) {
	for _, name := range usernames() {
		slot := AssignedSlot(name)
		assert.Contains(t, []Slot{Morning, Evening}, slot)
		assert.Equal(t, slot, AssignedSlot(name))
	}
	// md5("") оканчивается на 0x7e
	assert.Equal(t, Morning, AssignedSlot(""))
}

func TestCurrentSlot(t *testing.T) {
	assert.Equal(t, Morning, CurrentSlot(time.Date(2026, 10, 12, 2, 23, 0, 0, time.UTC)))
	assert.Equal(t, Morning, CurrentSlot(time.Date(2026, 10, 12, 9, 59, 0, 0, time.UTC)))
	assert.Equal(t, Evening, CurrentSlot(time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, Evening, CurrentSlot(time.Date(2026, 10, 12, 14, 47, 0, 0, time.UTC)))
}

func TestWeekdayUsesLocalCalendar(t *testing.T) {
	// 2026-10-11 20:00 UTC — уже понедельник 12 октября в UTC+8.
	ts := time.Date(2026, 10, 11, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, Weekday(ts))
	assert.Equal(t, 6, Weekday(time.Date(2026, 10, 11, 12, 0, 0, 0, time.UTC)))
}

// weekRuns возвращает все 14 запусков недели, начинающейся с понедельника 2026-10-12.
func weekRuns() []time.Time {
	var runs []time.Time
	start := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 7; d++ {
		day := start.AddDate(0, 0, d)
		runs = append(runs, day.Add(2*time.Hour+23*time.Minute), day.Add(14*time.Hour+47*time.Minute))
	}
	return runs
}

func TestIsReplySlotFiresExactlyOnActiveDays(t *testing.T) {
	for _, name := range usernames() {
		active := 0
		for _, run := range weekRuns() {
			if IsReplySlot(name, run) {
				active++
				assert.Equal(t, AssignedSlot(name), CurrentSlot(run))
			}
		}
		assert.Equal(t, ReplyDaysPerWeek, active, name)
	}
}

func TestIsActiveTodayMatchesExtrasDays(t *testing.T) {
	for _, name := range usernames() {
		active := 0
		for _, run := range weekRuns() {
			if IsActiveToday(name, run) {
				active++
			}
		}
		assert.Equal(t, len(ExtrasDays(name, Week(weekRuns()[0]))), active, name)
	}
}

func TestDecisionReason(t *testing.T) {
	d := Decision{Days: []int{1, 3}, Weekday: 2}
	assert.Equal(t, "not an active day", d.Reason())
	d = Decision{Days: []int{1, 3}, Weekday: 3, AssignedSlot: Morning, CurrentSlot: Evening}
	assert.Equal(t, "wrong run slot", d.Reason())
	d.Active = true
	assert.Equal(t, "active", d.Reason())
}

// Дни и слоты, посчитанные исходным генератором CPython (md5-сид, sample, randint).
func TestScheduleMatchesCPython(t *testing.T) {
	cases := []struct {
		username string
		week     int
		reply    []int
		extras   []int
		slot     Slot
	}{
		{"alice", 1, []int{3, 5}, []int{2, 6}, Morning},
		{"bob", 42, []int{0, 2}, []int{1, 3, 4}, Morning},
		{"张三", 17, []int{2, 4}, []int{3, 5}, Evening},
	}
	for _, c := range cases {
		assert.Equal(t, c.reply, ReplyDays(c.username, c.week), "reply %s/%d", c.username, c.week)
		assert.Equal(t, c.extras, ExtrasDays(c.username, c.week), "extras %s/%d", c.username, c.week)
		assert.Equal(t, c.slot, AssignedSlot(c.username), "slot %s", c.username)
	}
}
