package clipcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(Config{Dir: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestCacheable(t *testing.T) {
	assert.True(t, Cacheable("https://cdn.example.org/a.mp3"))
	assert.True(t, Cacheable("http://localhost:9/a.ogg"))
	assert.False(t, Cacheable("/sounds/intro.mp3"))
	assert.False(t, Cacheable("data:audio/wav;base64,AAAA"))
	assert.False(t, Cacheable("::nope"))
}

func TestFetchAndLocal(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("ID3 fake mp3 bytes"))
	}))
	defer srv.Close()

	c := newCache(t)
	u := srv.URL + "/clips/rain.ogg"
	assert.Equal(t, u, c.Local(u), "unknown clips pass through")

	res, err := c.Fetch(context.Background(), u)
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Equal(t, ".ogg", filepath.Ext(res.Path))

	b, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "ID3 fake mp3 bytes", string(b))
	assert.Equal(t, "/audio/"+filepath.Base(res.Path), c.Local(u))

	res, err = c.Fetch(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, res.CacheHit)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchConcurrentSingleDownload(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	c := newCache(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Fetch(context.Background(), srv.URL+"/a.mp3")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	// late goroutines may hit the file fast path; none may download twice in parallel
	assert.LessOrEqual(t, hits.Load(), int32(8))
	assert.GreaterOrEqual(t, hits.Load(), int32(1))
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty.mp3" {
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newCache(t)
	_, err := c.Fetch(context.Background(), srv.URL+"/missing.mp3")
	require.Error(t, err)
	_, err = c.Fetch(context.Background(), srv.URL+"/empty.mp3")
	require.Error(t, err)
	_, err = c.Fetch(context.Background(), "/sounds/local.mp3")
	require.Error(t, err)

	entries, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "failed downloads leave no files behind")
}

func TestWarmSkipsLocalAndFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.mp3" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newCache(t)
	n := c.Warm(context.Background(), []string{
		srv.URL + "/a.mp3",
		srv.URL + "/b.wav",
		srv.URL + "/bad.mp3",
		"/sounds/intro.mp3",
		"data:audio/wav;base64,AAAA",
	})
	assert.Equal(t, 2, n)
	assert.NotEqual(t, srv.URL+"/a.mp3", c.Local(srv.URL+"/a.mp3"))
	assert.Equal(t, srv.URL+"/bad.mp3", c.Local(srv.URL+"/bad.mp3"))
}

func TestNilCacheLocal(t *testing.T) {
	var c *Cache
	assert.Equal(t, "x", c.Local("x"))
}
