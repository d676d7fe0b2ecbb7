package wordpool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// StatusFunc receives the human-readable phase of a load.
type StatusFunc func(msg string)

type Config struct {
	URL     string
	Timeout time.Duration
	Rand    Rand
}

// Loader fetches the art catalog and builds pools from it.
type Loader struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

type catalogResponse struct {
	Data []Artwork `json:"data"`
}

func NewLoader(cfg Config, log zerolog.Logger) *Loader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Rand == nil {
		cfg.Rand = DefaultRand
	}
	return &Loader{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With().Str("component", "wordpool").Logger(),
	}
}

// Load performs one catalog fetch. It never fails: any error is logged and
// the fallback pools come back with Degraded set.
func (l *Loader) Load(ctx context.Context, status StatusFunc) Pools {
	if status == nil {
		status = func(string) {}
	}
	status(StatusLoading)

	records, err := l.fetch(ctx)
	if err != nil {
		l.log.Error().Err(err).Str("url", l.cfg.URL).Msg("catalog fetch failed; using fallback word lists")
		status(StatusDegraded)
		return Fallback()
	}

	pools := Build(records, l.cfg.Rand)
	l.log.Info().
		Int("records", len(records)).
		Int("descriptors", len(pools.Descriptors)).
		Int("subjects", len(pools.Subjects)).
		Int("motifs", len(pools.Motifs)).
		Msg("word pools built")
	status(StatusReady)
	return pools
}

func (l *Loader) fetch(ctx context.Context) ([]Artwork, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("catalog status %d", resp.StatusCode)
	}

	var body catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if body.Data == nil {
		return nil, errors.New("catalog response has no data array")
	}
	return body.Data, nil
}

// Store holds the current pools for the UI. Reloads from concurrent callers
// share a single fetch.
type Store struct {
	loader *Loader
	sf     singleflight.Group

	mu     sync.RWMutex
	pools  Pools
	status string
}

func NewStore(loader *Loader) *Store {
	return &Store{loader: loader}
}

// Current returns the last loaded pools. Before the first load all three
// pools are empty and composers fall back per slot.
func (s *Store) Current() Pools {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pools
}

func (s *Store) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Loading reports whether no load has settled yet.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == "" || s.status == StatusLoading
}

func (s *Store) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
}

// Reload fetches new pools. The fetch is shared, so one caller going away
// must not cancel it for the others; only ctx's values are kept.
func (s *Store) Reload(ctx context.Context) Pools {
	ctx = context.WithoutCancel(ctx)
	v, _, _ := s.sf.Do("reload", func() (any, error) {
		p := s.loader.Load(ctx, s.setStatus)
		s.mu.Lock()
		s.pools = p
		s.mu.Unlock()
		return p, nil
	})
	return v.(Pools)
}
