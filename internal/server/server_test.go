package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museatlas/internal/cities"
	"museatlas/internal/config"
	"museatlas/internal/geocode"
	"museatlas/internal/prefs"
	"museatlas/internal/soundscape"
	"museatlas/internal/titles"
	"museatlas/internal/wordpool"
)

type memPrefs struct {
	mu    sync.Mutex
	saved map[string]prefs.Preference
}

func (m *memPrefs) Load(id string) (prefs.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.saved[id]
	if !ok {
		return prefs.Default(), prefs.ErrNotFound
	}
	return p, nil
}

func (m *memPrefs) Save(id string, p prefs.Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[id] = p
	return nil
}

type countingGeocoder struct {
	mu    sync.Mutex
	calls []string
}

func (g *countingGeocoder) Lookup(_ context.Context, city string) (geocode.Place, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, city)
	return geocode.Place{Latitude: 48.85, Longitude: 2.35, DisplayName: "Paris, France"}, nil
}

func (g *countingGeocoder) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

type harness struct {
	srv    *httptest.Server
	client *http.Client
	prefs  *memPrefs
	geo    *countingGeocoder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"title":"Golden Harbor at Dusk","artist_title":"Anon","style_title":"Impressionism"}]}`))
	}))
	t.Cleanup(catalog.Close)

	store := wordpool.NewStore(wordpool.NewLoader(wordpool.Config{URL: catalog.URL}, zerolog.Nop()))
	h := &harness{
		prefs: &memPrefs{saved: map[string]prefs.Preference{}},
		geo:   &countingGeocoder{},
	}

	sounds := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sounds, "intro.mp3"), []byte("intro"), 0o644))

	table := cities.Builtin("/sounds/ambience-default.mp3")
	s := New(Config{SoundsDir: sounds, AudioDir: t.TempDir()}, Deps{
		Pools:    store,
		Composer: titles.NewComposer(nil),
		Prefs:    h.prefs,
		NewSequencer: func() *soundscape.Sequencer {
			return soundscape.NewSequencer(soundscape.Config{
				IntroURL:       "/sounds/intro.mp3",
				ArrivalURL:     "/sounds/arrival.mp3",
				UnlockURL:      "data:audio/wav;base64,AAAA",
				CueVolume:      0.6,
				ArrivalVolume:  0.9,
				AmbienceVolume: 0.5,
				Map:            soundscape.MapConfig{Zoom: 12, FlyDuration: 2 * time.Second},
			}, h.geo, table, zerolog.Nop())
		},
	}, zerolog.Nop())

	h.srv = httptest.NewServer(s.Handler())
	t.Cleanup(h.srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	h.client = &http.Client{Jar: jar, Timeout: 5 * time.Second}
	return h
}

func (h *harness) getJSON(t *testing.T, path string, v any) {
	t.Helper()
	resp, err := h.client.Get(h.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (h *harness) event(t *testing.T, action string, body any) soundscapeResponse {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := h.client.Post(h.srv.URL+"/api/soundscape/"+action, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out soundscapeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func commandTypes(cmds []soundscape.Command) []soundscape.CommandType {
	out := make([]soundscape.CommandType, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Type)
	}
	return out
}

func TestTitlesRespectCountAndPersistPrefs(t *testing.T) {
	h := newHarness(t)

	var res titlesResponse
	h.getJSON(t, "/api/muse/titles?count=5&use_api=0", &res)
	assert.Len(t, res.Titles, 5)
	assert.Len(t, res.Shapes, 5)
	for _, s := range res.Shapes {
		assert.NotEqual(t, titles.ShapeUnknown, s)
	}
	assert.Equal(t, "Generated title", res.Subtitle)

	var p prefs.Preference
	h.getJSON(t, "/api/muse/prefs", &p)
	assert.Equal(t, prefs.Preference{UseAPIWords: false, TitleCount: 5}, p)

	// without params the stored preference applies
	h.getJSON(t, "/api/muse/titles", &res)
	assert.Len(t, res.Titles, 5)
}

func TestTitlesBadCountFallsBack(t *testing.T) {
	h := newHarness(t)

	var res titlesResponse
	h.getJSON(t, "/api/muse/titles?count=abc&persist=0", &res)
	assert.Len(t, res.Titles, titles.DefaultCount)
	h.prefs.mu.Lock()
	defer h.prefs.mu.Unlock()
	assert.Empty(t, h.prefs.saved)
}

func TestReloadReportsReady(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.Post(h.srv.URL+"/api/muse/reload", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var st poolStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, wordpool.StatusReady, st.Status)
	assert.False(t, st.Degraded)
	assert.NotZero(t, st.Descriptors)
}

func TestStatusReportsLoadingUntilReload(t *testing.T) {
	h := newHarness(t)

	var st poolStatus
	h.getJSON(t, "/api/muse/status", &st)
	assert.True(t, st.Loading)
	assert.Equal(t, wordpool.StatusLoading, st.Status)

	resp, err := h.client.Post(h.srv.URL+"/api/muse/reload", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	h.getJSON(t, "/api/muse/status", &st)
	assert.False(t, st.Loading)
	assert.Equal(t, wordpool.StatusReady, st.Status)
}

func TestEmptySearchDoesNotGeocode(t *testing.T) {
	h := newHarness(t)

	res := h.event(t, "search", map[string]string{"query": "   "})
	assert.Equal(t, []soundscape.CommandType{soundscape.CmdStatus}, commandTypes(res.Commands))
	assert.Equal(t, soundscape.StatusEnterCity, res.Commands[0].Status)
	assert.Empty(t, h.geo.Calls())
}

func TestSearchFlowAndToggle(t *testing.T) {
	h := newHarness(t)

	res := h.event(t, "search", map[string]string{"query": "Paris"})
	assert.Equal(t, soundscape.StatePlayingIntro, res.State.State)
	assert.Empty(t, h.geo.Calls())

	res = h.event(t, "ended", map[string]string{"clip": "intro"})
	assert.Equal(t, []string{"Paris"}, h.geo.Calls())
	assert.Contains(t, commandTypes(res.Commands), soundscape.CmdFocus)
	assert.Equal(t, "paris", res.State.City)
	assert.True(t, res.State.ListenEnabled)

	res = h.event(t, "toggle", nil)
	assert.Equal(t, soundscape.AmbiencePlaying, res.State.Ambience)

	var st soundscapeResponse
	h.getJSON(t, "/api/soundscape/state", &st)
	assert.Equal(t, soundscape.AmbiencePlaying, st.State.Ambience)
	assert.NotNil(t, st.Commands)

	res = h.event(t, "toggle", nil)
	assert.Equal(t, soundscape.AmbienceStopped, res.State.Ambience)
}

func TestSessionsAreIsolatedPerClient(t *testing.T) {
	h := newHarness(t)
	h.event(t, "search", map[string]string{"query": "Paris"})

	// fresh client, no cookie
	other := &http.Client{Timeout: 5 * time.Second}
	resp, err := other.Get(h.srv.URL + "/api/soundscape/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	var st soundscapeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, soundscape.StateIdle, st.State.State)
}

func TestUnknownActionIs404(t *testing.T) {
	h := newHarness(t)
	resp, err := h.client.Post(h.srv.URL+"/api/soundscape/dance", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticSounds(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.Get(h.srv.URL + "/sounds/intro.mp3")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = h.client.Get(h.srv.URL + "/sounds/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPagesServe(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/", "/muse", "/soundscape.js", "/muse.js", "/healthz"} {
		resp, err := h.client.Get(h.srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestBundledClipsServeByDefault(t *testing.T) {
	s := New(Config{AudioDir: t.TempDir()}, Deps{}, zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	cfg := config.Default()
	urls := append([]string{cfg.Soundscape.IntroURL, cfg.Soundscape.ArrivalURL},
		cities.Builtin(cfg.Soundscape.DefaultAmbienceURL).URLs()...)
	require.Len(t, urls, 9)

	for _, u := range urls {
		resp, err := http.Get(srv.URL + u)
		require.NoError(t, err, u)
		head := make([]byte, 4)
		_, err = io.ReadFull(resp.Body, head)
		resp.Body.Close()
		require.NoError(t, err, u)

		assert.Equal(t, http.StatusOK, resp.StatusCode, u)
		assert.Equal(t, "RIFF", string(head), u)
	}
}
