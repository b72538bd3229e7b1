package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/gotd/td/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{AppID: 1, AppHash: "h", BotToken: "t"}.Enabled())
	assert.True(t, Config{AppID: 1, AppHash: "h", BotToken: "t", Chat: "@status"}.Enabled())
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Config{AppID: 1}, nil)
	assert.Error(t, err)

	n, err := New(Config{AppID: 1, AppHash: "h", BotToken: "t", Chat: "@status"}, nil)
	assert.NoError(t, err)
	assert.NotNil(t, n)
}

func TestEmptyMessageIsNotSent(t *testing.T) {
	n, err := New(Config{AppID: 1, AppHash: "h", BotToken: "t", Chat: "@status"}, nil)
	assert.NoError(t, err)
	assert.NoError(t, n.Notify(context.Background(), "   "))
}

type fakeSessions struct {
	data map[string][]byte
	err  error
}

func (f *fakeSessions) LoadBotSession(ctx context.Context, key string) ([]byte, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	d, ok := f.data[key]
	return d, ok, nil
}

func (f *fakeSessions) StoreBotSession(ctx context.Context, key string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.data[key] = data
	return nil
}

func TestBotKey(t *testing.T) {
	k := BotKey("123:abc")
	assert.Len(t, k, 16)
	assert.Equal(t, k, BotKey("123:abc"))
	assert.NotEqual(t, k, BotKey("123:abd"))
	assert.NotContains(t, k, "abc")
}

func TestSessionIsScopedToBotToken(t *testing.T) {
	store := &fakeSessions{data: map[string][]byte{}}
	cfg := Config{AppID: 1, AppHash: "h", BotToken: "111:first", Chat: "@status"}
	first, err := New(cfg, store)
	require.NoError(t, err)

	_, err = first.session.LoadSession(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)
	require.NoError(t, first.session.StoreSession(context.Background(), []byte(`{"dc":2}`)))
	assert.Contains(t, store.data, BotKey("111:first"))

	data, err := first.session.LoadSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"dc":2}`, string(data))

	cfg.BotToken = "222:second"
	second, err := New(cfg, store)
	require.NoError(t, err)
	_, err = second.session.LoadSession(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSessionStoreErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	n, err := New(Config{AppID: 1, AppHash: "h", BotToken: "t", Chat: "@status"}, &fakeSessions{err: boom})
	require.NoError(t, err)
	_, err = n.session.LoadSession(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, n.session.StoreSession(context.Background(), nil), boom)
}

func TestSessionInMemoryWithoutStore(t *testing.T) {
	n, err := New(Config{AppID: 1, AppHash: "h", BotToken: "t", Chat: "@status"}, nil)
	require.NoError(t, err)
	_, ok := n.session.(*session.StorageMemory)
	assert.True(t, ok)
}
