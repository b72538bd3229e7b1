package selection

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engage_go/internal/runstate"
	"engage_go/models"
	"engage_go/pkg/forum"
)

var now = time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)

func fresh(id int) models.Topic {
	return models.Topic{ID: id, Title: "t", CreatedAt: now.Add(-time.Hour), PostsCount: 5, OriginalPoster: "stranger"}
}

type fakeReader struct {
	details map[int]models.TopicDetail
	errs    map[int]error
	reads   []int
}

func (f *fakeReader) Topic(_ context.Context, id int) (models.TopicDetail, error) {
	f.reads = append(f.reads, id)
	if err := f.errs[id]; err != nil {
		return models.TopicDetail{}, err
	}
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return models.TopicDetail{ID: id, FirstPostID: id * 10}, nil
}

type fakeHistory map[int]bool

func (h fakeHistory) HasReply(_ context.Context, _ string, id int) (bool, error) {
	return h[id], nil
}

func TestEligibleFilters(t *testing.T) {
	busy := BusyAuthors([]models.Account{{Username: "Bot1"}, {Username: "bot2"}})

	pinned := fresh(1)
	pinned.Pinned = true
	global := fresh(2)
	global.PinnedGlobally = true
	byBot := fresh(3)
	byBot.OriginalPoster = "bot1"
	lastBot := fresh(4)
	lastBot.LastPoster = "BOT2"
	old := fresh(5)
	old.CreatedAt = now.Add(-MaxTopicAge - time.Minute)
	undated := fresh(6)
	undated.CreatedAt = time.Time{}
	mega := fresh(7)
	mega.PostsCount = 101
	closed := fresh(8)
	closed.Closed = true
	archived := fresh(9)
	archived.Archived = true
	edge := fresh(10)
	edge.PostsCount = 100
	edge.CreatedAt = now.Add(-MaxTopicAge)

	got := Eligible([]models.Topic{pinned, global, byBot, lastBot, old, undated, mega, closed, archived, edge, fresh(11)}, busy, now)
	var ids []int
	for _, t := range got {
		ids = append(ids, t.ID)
	}
	assert.Equal(t, []int{10, 11}, ids)
}

func TestSelectHonoursExclusion(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	candidates := []models.Topic{fresh(1), fresh(2), fresh(3)}
	for i := 0; i < 50; i++ {
		topic, ok := Select(candidates, map[int]bool{1: true, 3: true}, nil, now, rnd)
		require.True(t, ok)
		assert.Equal(t, 2, topic.ID)
	}
	_, ok := Select(candidates, map[int]bool{1: true, 2: true, 3: true}, nil, now, rnd)
	assert.False(t, ok)
	_, ok = Select(nil, nil, nil, now, rnd)
	assert.False(t, ok)
}

func newCoordinator() *Coordinator {
	return &Coordinator{
		Run:  runstate.NewMemoryRun(),
		Busy: map[string]struct{}{},
		Rand: rand.New(rand.NewSource(7)),
		Now:  func() time.Time { return now },
	}
}

func TestSecondAccountGetsNoTargetOnSingleItemPool(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator()
	reader := &fakeReader{}
	pool := []models.Topic{fresh(42)}

	target, err := c.SelectTarget(ctx, "first", reader, pool)
	require.NoError(t, err)
	assert.Equal(t, 42, target.Topic.ID)
	assert.Equal(t, 420, target.Detail.FirstPostID)
	require.NoError(t, c.Run.MarkReplied(ctx, 42, "текст"))

	_, err = c.SelectTarget(ctx, "second", reader, pool)
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestSkipsTopicsWithParticipation(t *testing.T) {
	c := newCoordinator()
	reader := &fakeReader{details: map[int]models.TopicDetail{
		1: {ID: 1, Participants: []string{"Alice"}},
		2: {ID: 2, Participants: []string{"ALICE"}},
	}}
	target, err := c.SelectTarget(context.Background(), "alice", reader, []models.Topic{fresh(1), fresh(2), fresh(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, target.Topic.ID)
}

func TestGivesUpAfterThreeAttempts(t *testing.T) {
	c := newCoordinator()
	details := map[int]models.TopicDetail{}
	var pool []models.Topic
	for id := 1; id <= 5; id++ {
		details[id] = models.TopicDetail{ID: id, Participants: []string{"alice"}}
		pool = append(pool, fresh(id))
	}
	reader := &fakeReader{details: details}
	_, err := c.SelectTarget(context.Background(), "alice", reader, pool)
	assert.ErrorIs(t, err, ErrNoTarget)
	assert.Len(t, reader.reads, MaxAttempts)
}

func TestHistoryExcludesTopic(t *testing.T) {
	c := newCoordinator()
	c.History = fakeHistory{1: true}
	target, err := c.SelectTarget(context.Background(), "alice", &fakeReader{}, []models.Topic{fresh(1), fresh(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, target.Topic.ID)
}

func TestRateLimitPropagates(t *testing.T) {
	c := newCoordinator()
	reader := &fakeReader{errs: map[int]error{1: &forum.RateLimitError{Wait: time.Minute}}}
	_, err := c.SelectTarget(context.Background(), "alice", reader, []models.Topic{fresh(1)})
	_, limited := forum.AsRateLimit(err)
	assert.True(t, limited)
}

func TestReadErrorDiscardsCandidate(t *testing.T) {
	c := newCoordinator()
	reader := &fakeReader{errs: map[int]error{1: errors.New("сбой")}}
	target, err := c.SelectTarget(context.Background(), "alice", reader, []models.Topic{fresh(1), fresh(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, target.Topic.ID)
}
