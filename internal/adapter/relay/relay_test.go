package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/city-info-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Client ---

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ZSFH", r.URL.Query().Get("indicator_id"))
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, discardLogger())
	body, err := c.Fetch(context.Background(), srv.URL+"/data?indicator_id=ZSFH")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestClient_Fetch_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(0, discardLogger()).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

// --- CachedRelay ---

type fakeRelay struct {
	calls int
	body  []byte
	err   error
}

func (f *fakeRelay) Fetch(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.body, f.err
}

type fakeStore struct {
	data   map[string]string
	getErr error
	setErr error
	ttls   map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *fakeStore) Get(_ context.Context, key string) *redis.StringCmd {
	if s.getErr != nil {
		return redis.NewStringResult("", s.getErr)
	}
	v, ok := s.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (s *fakeStore) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if s.setErr != nil {
		return redis.NewStatusResult("", s.setErr)
	}
	s.data[key] = string(value.([]byte))
	s.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func newTestCachedRelay(inner *fakeRelay, st *fakeStore) *CachedRelay {
	return &CachedRelay{
		inner:   inner,
		store:   st,
		ttl:     time.Hour,
		metrics: observability.NewMetricsForTesting(),
		logger:  discardLogger(),
	}
}

func TestCachedRelay_MissThenHit(t *testing.T) {
	inner := &fakeRelay{body: []byte(`{"v":1}`)}
	st := newFakeStore()
	c := newTestCachedRelay(inner, st)

	b1, err := c.Fetch(context.Background(), "https://example.com/a?api_key=secret")
	require.NoError(t, err)
	b2, err := c.Fetch(context.Background(), "https://example.com/a?api_key=secret")
	require.NoError(t, err)

	assert.Equal(t, b1, b2)
	assert.Equal(t, 1, inner.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.RelayCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.RelayCache.WithLabelValues("miss")), 0)

	for k, ttl := range st.ttls {
		assert.True(t, strings.HasPrefix(k, keyPrefix))
		assert.NotContains(t, k, "secret")
		assert.Equal(t, time.Hour, ttl)
	}
}

func TestCachedRelay_StoreErrorFallsThrough(t *testing.T) {
	inner := &fakeRelay{body: []byte(`{}`)}
	st := newFakeStore()
	st.getErr = errors.New("connection refused")
	st.setErr = errors.New("connection refused")
	c := newTestCachedRelay(inner, st)

	body, err := c.Fetch(context.Background(), "https://example.com/b")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), body)
	assert.Equal(t, 1, inner.calls)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.RelayCache.WithLabelValues("error")), 0)
}

func TestCachedRelay_InnerErrorNotCached(t *testing.T) {
	inner := &fakeRelay{err: errors.New("boom")}
	st := newFakeStore()
	c := newTestCachedRelay(inner, st)

	_, err := c.Fetch(context.Background(), "https://example.com/c")
	require.Error(t, err)
	assert.Empty(t, st.data)
}
