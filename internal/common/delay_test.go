package common

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct{ calls []time.Duration }

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return ctx.Err()
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepShort(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 10*time.Millisecond))
	require.NoError(t, Sleep(context.Background(), 0))
}

func TestUniformBounds(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		d := Uniform(rnd, 60*time.Second, 75*time.Second)
		assert.GreaterOrEqual(t, d, 60*time.Second)
		assert.LessOrEqual(t, d, 75*time.Second)
	}
	assert.Equal(t, 5*time.Second, Uniform(rnd, 5*time.Second, 5*time.Second))
}

func TestWaitWithCancellationUsesSleeper(t *testing.T) {
	rec := &recordingSleeper{}
	d, err := WaitWithCancellation(context.Background(), rec, rand.New(rand.NewSource(2)), time.Second, 2*time.Second)
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, d, rec.calls[0])
}

func TestPersonalityPauseScaled(t *testing.T) {
	rec := &recordingSleeper{}
	p := NewPersonality(rand.New(rand.NewSource(3)), rec)
	assert.GreaterOrEqual(t, p.Speed, 0.6)
	assert.LessOrEqual(t, p.Speed, 1.6)

	for i := 0; i < 100; i++ {
		d, err := p.Pause(context.Background(), 2, 5)
		require.NoError(t, err)
		lo := time.Duration(2 * p.Speed * float64(time.Second))
		hi := time.Duration(5 * p.Speed * float64(time.Second))
		assert.GreaterOrEqual(t, d, lo-time.Millisecond)
		assert.LessOrEqual(t, d, hi+time.Millisecond)
	}
	assert.Len(t, rec.calls, 100)
}
