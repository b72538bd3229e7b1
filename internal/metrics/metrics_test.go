package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(RepliesPosted.WithLabelValues("pool"))
	RepliesPosted.WithLabelValues("pool").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RepliesPosted.WithLabelValues("pool")))
}

func TestPush(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	TopicsRead.Inc()
	require.NoError(t, Push(srv.URL, 2))
	assert.True(t, strings.HasPrefix(path, "/metrics/job/engage_run"), path)
	assert.Contains(t, path, "job_index/2")
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	assert.Error(t, Push(srv.URL, 0))
}
