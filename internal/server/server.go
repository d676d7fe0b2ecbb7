package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"museatlas/internal/prefs"
	"museatlas/internal/sounds"
	"museatlas/internal/soundscape"
	"museatlas/internal/titles"
	"museatlas/internal/wordpool"
)

const (
	clientCookie = "museatlas_client"
	maxSessions  = 1000
)

type Config struct {
	Bind              string
	Port              int
	AudioDir          string
	SoundsDir         string
	ReadHeaderTimeout time.Duration
}

// PrefStore is the slice of prefs.Store the handlers need.
type PrefStore interface {
	Load(clientID string) (prefs.Preference, error)
	Save(clientID string, p prefs.Preference) error
}

type Deps struct {
	Pools    *wordpool.Store
	Composer *titles.Composer
	Prefs    PrefStore

	// NewSequencer builds the per-browser soundscape state machine.
	NewSequencer func() *soundscape.Sequencer
}

type Server struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu       sync.Mutex
	seq      *soundscape.Sequencer
	lastSeen time.Time
}

func New(cfg Config, deps Deps, log zerolog.Logger) *Server {
	if cfg.Bind == "" {
		cfg.Bind = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8092
	}
	if cfg.AudioDir == "" {
		cfg.AudioDir = "./cache/audio"
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if deps.Composer == nil {
		deps.Composer = titles.NewComposer(nil)
	}

	return &Server{
		cfg:      cfg,
		deps:     deps,
		log:      log.With().Str("component", "server").Logger(),
		sessions: make(map[string]*session),
	}
}

func (s *Server) Addr() string {
	return fmt.Sprintf("http://%s:%d", s.cfg.Bind, s.cfg.Port)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Soundscape navigator
	mux.HandleFunc("GET /{$}", s.handleSoundscapePage)
	mux.HandleFunc("GET /soundscape.js", s.handleSoundscapeJS)
	mux.HandleFunc("GET /api/soundscape/state", s.handleSoundscapeState)
	mux.HandleFunc("POST /api/soundscape/{action}", s.handleSoundscapeAction)

	// Title generator
	mux.HandleFunc("GET /muse", s.handleMusePage)
	mux.HandleFunc("GET /muse.js", s.handleMuseJS)
	mux.HandleFunc("GET /api/muse/titles", s.handleTitles)
	mux.HandleFunc("GET /api/muse/prefs", s.handlePrefs)
	mux.HandleFunc("GET /api/muse/status", s.handleMuseStatus)
	mux.HandleFunc("POST /api/muse/reload", s.handleReload)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	soundsFS := sounds.FS()
	if s.cfg.SoundsDir != "" {
		soundsFS = os.DirFS(s.cfg.SoundsDir)
	}
	mux.Handle("GET /audio/", http.StripPrefix("/audio/", staticFS(os.DirFS(s.cfg.AudioDir))))
	mux.Handle("GET /sounds/", http.StripPrefix("/sounds/", staticFS(soundsFS)))

	return mux
}

// staticFS serves files from fsys without directory listings.
func staticFS(fsys fs.FS) http.Handler {
	files := http.FileServerFS(fsys)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		// basic traversal protection
		clean := filepath.Clean(r.URL.Path)
		if clean == "." || clean == ".." || strings.HasPrefix(clean, "..") || clean[0] == '/' || clean == `\` {
			http.Error(w, "bad path", http.StatusBadRequest)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	// shutdown
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	s.log.Info().Str("addr", srv.Addr).Msg("http server listening")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// clientID returns the browser's id cookie, issuing one on first contact.
func (s *Server) clientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(clientCookie); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   365 * 24 * 60 * 60,
	})
	return id
}

func (s *Server) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		if len(s.sessions) >= maxSessions {
			s.evictOldestLocked()
		}
		sess = &session{seq: s.deps.NewSequencer()}
		s.sessions[id] = sess
	}
	sess.lastSeen = time.Now()
	return sess
}

func (s *Server) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID, oldest = id, sess.lastSeen
		}
	}
	delete(s.sessions, oldestID)
}

type soundscapeRequest struct {
	Query  string              `json:"query"`
	Clip   soundscape.ClipKind `json:"clip"`
	Reason string              `json:"reason"`
}

type soundscapeResponse struct {
	State    soundscape.Snapshot  `json:"state"`
	Commands []soundscape.Command `json:"commands"`
}

func (s *Server) handleSoundscapeAction(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")

	var req soundscapeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request body")
			return
		}
	}

	sess := s.session(s.clientID(w, r))
	sess.mu.Lock()
	defer sess.mu.Unlock()

	var cmds []soundscape.Command
	switch action {
	case "unlock":
		cmds = sess.seq.Unlock()
	case "search":
		cmds = sess.seq.Search(req.Query)
	case "ended":
		cmds = sess.seq.ClipEnded(r.Context(), req.Clip)
	case "failed":
		cmds = sess.seq.PlaybackFailed(req.Clip, req.Reason)
	case "toggle":
		cmds = sess.seq.ToggleAmbience()
	default:
		writeError(w, http.StatusNotFound, "unknown action "+strconv.Quote(action))
		return
	}
	if cmds == nil {
		cmds = []soundscape.Command{}
	}

	snap := sess.seq.Snapshot()
	s.log.Debug().Str("action", action).Str("state", string(snap.State)).Int("commands", len(cmds)).Msg("soundscape event")
	writeJSON(w, soundscapeResponse{State: snap, Commands: cmds})
}

func (s *Server) handleSoundscapeState(w http.ResponseWriter, r *http.Request) {
	sess := s.session(s.clientID(w, r))
	sess.mu.Lock()
	snap := sess.seq.Snapshot()
	sess.mu.Unlock()
	writeJSON(w, soundscapeResponse{State: snap, Commands: []soundscape.Command{}})
}

type titlesResponse struct {
	Titles   []string         `json:"titles"`
	Subtitle string           `json:"subtitle"`
	Shapes   []titles.Shape   `json:"shapes"`
	Status   string           `json:"status"`
	Degraded bool             `json:"degraded"`
	Prefs    prefs.Preference `json:"prefs"`
}

// handleTitles generates a batch. Missing query params fall back to the
// stored preference; persist=0 skips writing it back.
func (s *Server) handleTitles(w http.ResponseWriter, r *http.Request) {
	id := s.clientID(w, r)
	q := r.URL.Query()

	p := s.loadPrefs(id)
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			n = titles.DefaultCount
		}
		p.TitleCount = n
	}
	if v := q.Get("use_api"); v != "" {
		p.UseAPIWords = v == "true" || v == "1"
	}

	pools := s.deps.Pools.Current()
	batch := s.deps.Composer.Compose(pools, p.UseAPIWords, p.TitleCount)

	if q.Get("persist") != "0" && s.deps.Prefs != nil {
		if err := s.deps.Prefs.Save(id, p); err != nil {
			s.log.Error().Err(err).Str("client", id).Msg("failed to save preferences")
		}
	}

	shapes := make([]titles.Shape, len(batch))
	for i, t := range batch {
		shapes[i] = titles.ShapeOf(t)
	}
	subtitle := "Press the button to create a title."
	if len(batch) > 0 {
		subtitle = "Generated title"
	}

	writeJSON(w, titlesResponse{
		Titles:   batch,
		Subtitle: subtitle,
		Shapes:   shapes,
		Status:   s.deps.Pools.Status(),
		Degraded: pools.Degraded,
		Prefs:    p,
	})
}

func (s *Server) loadPrefs(id string) prefs.Preference {
	if s.deps.Prefs == nil {
		return prefs.Default()
	}
	p, err := s.deps.Prefs.Load(id)
	if err != nil && !errors.Is(err, prefs.ErrNotFound) {
		s.log.Error().Err(err).Str("client", id).Msg("failed to load preferences")
	}
	return p
}

func (s *Server) handlePrefs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.loadPrefs(s.clientID(w, r)))
}

type poolStatus struct {
	Status      string `json:"status"`
	Loading     bool   `json:"loading"`
	Degraded    bool   `json:"degraded"`
	Descriptors int    `json:"descriptors"`
	Subjects    int    `json:"subjects"`
	Motifs      int    `json:"motifs"`
}

func statusOf(store *wordpool.Store, p wordpool.Pools) poolStatus {
	status := store.Status()
	if status == "" {
		status = wordpool.StatusLoading
	}
	return poolStatus{
		Status:      status,
		Loading:     store.Loading(),
		Degraded:    p.Degraded,
		Descriptors: len(p.Descriptors),
		Subjects:    len(p.Subjects),
		Motifs:      len(p.Motifs),
	}
}

func (s *Server) handleMuseStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statusOf(s.deps.Pools, s.deps.Pools.Current()))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	p := s.deps.Pools.Reload(r.Context())
	writeJSON(w, statusOf(s.deps.Pools, p))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
