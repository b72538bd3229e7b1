package common

import (
	"context"
	"math/rand"
	"time"
)

// Шаг, с которым длинные ожидания проверяют отмену контекста.
const waitStep = 5 * time.Second

// Sleeper приостанавливает выполнение. В тестах подменяется записывающей реализацией.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc позволяет использовать функцию как Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// RealSleeper спит по-настоящему.
var RealSleeper Sleeper = SleeperFunc(Sleep)

// Sleep ждёт d шагами по пять секунд и регулярно проверяет контекст на отмену,
// чтобы не блокировать долгие задержки.
func Sleep(ctx context.Context, d time.Duration) error {
	for remaining := d; remaining > 0; {
		step := waitStep
		if remaining < step {
			step = remaining
		}
		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		remaining -= step
	}
	return ctx.Err()
}

// Uniform возвращает случайную длительность в [min, max].
func Uniform(rnd *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rnd.Int63n(int64(max-min)+1))
}

// WaitWithCancellation выполняет ожидание в случайном диапазоне [lo, hi]
// через переданный Sleeper.
func WaitWithCancellation(ctx context.Context, s Sleeper, rnd *rand.Rand, lo, hi time.Duration) (time.Duration, error) {
	d := Uniform(rnd, lo, hi)
	return d, s.Sleep(ctx, d)
}

// Personality — темп конкретного аккаунта на один запуск: все паузы
// умножаются на Speed из [0.6, 1.6].
type Personality struct {
	Speed   float64
	rnd     *rand.Rand
	sleeper Sleeper
}

const (
	minSpeed = 0.6
	maxSpeed = 1.6
)

// NewPersonality выбирает темп случайно.
func NewPersonality(rnd *rand.Rand, s Sleeper) *Personality {
	return &Personality{
		Speed:   minSpeed + rnd.Float64()*(maxSpeed-minSpeed),
		rnd:     rnd,
		sleeper: s,
	}
}

// Rand отдаёт генератор, которым пользуется этот аккаунт.
func (p *Personality) Rand() *rand.Rand { return p.rnd }

// Chance возвращает true с вероятностью prob.
func (p *Personality) Chance(prob float64) bool { return p.rnd.Float64() < prob }

// Pause ждёт случайное время из [lo, hi] секунд, умноженное на темп.
func (p *Personality) Pause(ctx context.Context, lo, hi float64) (time.Duration, error) {
	sec := (lo + p.rnd.Float64()*(hi-lo)) * p.Speed
	d := time.Duration(sec * float64(time.Second))
	return d, p.sleeper.Sleep(ctx, d)
}
