// Package clipcache mirrors remote audio clips into a local directory so the
// page can play them same-origin from /audio/.
package clipcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	Dir       string
	Timeout   time.Duration
	MaxBytes  int64
	URLPrefix string // where Dir is served, default /audio/
	Workers   int
}

type Cache struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger

	sf singleflight.Group

	mu    sync.RWMutex
	local map[string]string // remote URL -> served URL
}

type FetchResult struct {
	Path     string
	CacheHit bool
}

func New(cfg Config, log zerolog.Logger) (*Cache, error) {
	if cfg.Dir == "" {
		cfg.Dir = "./cache/audio"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 20 << 20
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/audio/"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		log:   log.With().Str("component", "clipcache").Logger(),
		local: make(map[string]string),
	}, nil
}

func (c *Cache) Dir() string { return c.cfg.Dir }

// Cacheable reports whether u is a remote http(s) URL. Same-origin paths and
// data: URIs are played as-is.
func Cacheable(u string) bool {
	p, err := url.Parse(u)
	if err != nil {
		return false
	}
	return (p.Scheme == "http" || p.Scheme == "https") && p.Host != ""
}

// Local returns the same-origin URL for a clip already mirrored, or u itself.
func (c *Cache) Local(u string) string {
	if c == nil {
		return u
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if l, ok := c.local[u]; ok {
		return l
	}
	return u
}

// Fetch downloads u into the cache unless it is already there.
func (c *Cache) Fetch(ctx context.Context, u string) (FetchResult, error) {
	if !Cacheable(u) {
		return FetchResult{}, fmt.Errorf("not a remote clip url: %q", u)
	}

	key := cacheKey(u)
	finalPath := filepath.Join(c.cfg.Dir, key+"."+extensionFromURL(u))

	// fast path
	if fileExists(finalPath) {
		c.remember(u, finalPath)
		return FetchResult{Path: finalPath, CacheHit: true}, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		if fileExists(finalPath) {
			return FetchResult{Path: finalPath, CacheHit: true}, nil
		}

		data, err := c.download(ctx, u)
		if err != nil {
			return FetchResult{}, err
		}

		tmp := fmt.Sprintf("%s.tmp-%d-%d", finalPath, time.Now().UnixNano(), rand.Intn(999999))
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return FetchResult{}, err
		}
		// atomic replace
		if err := os.Rename(tmp, finalPath); err != nil {
			_ = os.Remove(tmp)
			return FetchResult{}, err
		}
		return FetchResult{Path: finalPath, CacheHit: false}, nil
	})
	if err != nil {
		return FetchResult{}, err
	}
	res := v.(FetchResult)
	c.remember(u, res.Path)
	return res, nil
}

// Warm mirrors every remote URL in urls. Failures are logged and skipped;
// those clips keep playing from their remote origin.
func (c *Cache) Warm(ctx context.Context, urls []string) int {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	var mu sync.Mutex
	cached := 0
	for _, u := range urls {
		if !Cacheable(u) {
			continue
		}
		g.Go(func() error {
			res, err := c.Fetch(gctx, u)
			if err != nil {
				c.log.Error().Err(err).Str("url", u).Msg("failed to mirror clip")
				return nil
			}
			c.log.Debug().Str("url", u).Bool("cache_hit", res.CacheHit).Msg("clip mirrored")
			mu.Lock()
			cached++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return cached
}

func (c *Cache) remember(u, p string) {
	c.mu.Lock()
	c.local[u] = c.cfg.URLPrefix + filepath.Base(p)
	c.mu.Unlock()
}

func (c *Cache) download(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "audio/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("clip download failed: status=%d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty clip response")
	}
	if int64(len(data)) > c.cfg.MaxBytes {
		return nil, fmt.Errorf("clip larger than %d bytes", c.cfg.MaxBytes)
	}
	return data, nil
}

func cacheKey(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:])
}

func extensionFromURL(u string) string {
	p, err := url.Parse(u)
	if err != nil {
		return "mp3"
	}
	switch ext := strings.ToLower(strings.TrimPrefix(path.Ext(p.Path), ".")); ext {
	case "mp3", "wav", "ogg", "oga", "aac", "m4a", "flac", "opus", "webm":
		return ext
	default:
		return "mp3"
	}
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !st.IsDir() && st.Size() > 0
}
