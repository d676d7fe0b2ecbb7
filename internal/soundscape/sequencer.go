package soundscape

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"museatlas/internal/cities"
	"museatlas/internal/geocode"
)

type State string

const (
	StateIdle           State = "idle"
	StatePlayingIntro   State = "playing_intro"
	StateNavigating     State = "navigating"
	StatePlayingArrival State = "playing_arrival"
)

type Ambience string

const (
	AmbienceStopped Ambience = "stopped"
	AmbiencePlaying Ambience = "playing"
)

const (
	StatusEnterCity    = "Enter a city first."
	StatusSearchFirst  = "Search for a city first."
	StatusIntro        = "Playing intro…"
	StatusAmbienceOff  = "Ambience stopped."
	StatusUnreachable  = "Could not reach the geocoding service."
	StatusReadyToPlay  = "Press Listen for the city's ambience."
	statusNotFoundFmt  = "No place found for %q."
	statusLookingUpFmt = "Looking up %s…"
	statusArrivedFmt   = "Arrived: %s"
	statusAmbienceFmt  = "Playing ambience for %s."
	statusDefaultFmt   = "No sound for %s, playing default ambience."
	statusNoSoundFmt   = "No ambience available for %s."
	statusBlockedFmt   = "Playback blocked (%s). Click the page and try again."
)

type Geocoder interface {
	Lookup(ctx context.Context, city string) (geocode.Place, error)
}

type Config struct {
	IntroURL   string
	ArrivalURL string
	UnlockURL  string

	CueVolume      float64
	ArrivalVolume  float64
	AmbienceVolume float64

	Map MapConfig

	// MapURL rewrites clip URLs before they are sent, e.g. to a local mirror.
	MapURL func(string) string
}

// Snapshot is the externally visible sequencer state.
type Snapshot struct {
	State         State    `json:"state"`
	Ambience      Ambience `json:"ambience"`
	City          string   `json:"city,omitempty"`
	Query         string   `json:"query,omitempty"`
	Active        ClipKind `json:"active,omitempty"`
	ListenEnabled bool     `json:"listen_enabled"`
}

// Sequencer drives intro → geocode → map → arrival and the ambience toggle.
// Every operation returns the commands for the page to execute. Not safe for
// concurrent use; callers serialize events per session.
type Sequencer struct {
	cfg   Config
	geo   Geocoder
	table *cities.Table
	log   zerolog.Logger

	audio AudioSession
	mapc  *MapController

	state    State
	ambience Ambience
	query    string
	unlocked bool
	listen   bool
}

func NewSequencer(cfg Config, geo Geocoder, table *cities.Table, log zerolog.Logger) *Sequencer {
	return &Sequencer{
		cfg:      cfg,
		geo:      geo,
		table:    table,
		log:      log.With().Str("component", "soundscape").Logger(),
		mapc:     NewMapController(cfg.Map),
		state:    StateIdle,
		ambience: AmbienceStopped,
	}
}

func (s *Sequencer) Snapshot() Snapshot {
	snap := Snapshot{
		State:         s.state,
		Ambience:      s.ambience,
		City:          s.mapc.CityKey(),
		Query:         s.query,
		ListenEnabled: s.listen,
	}
	if c, ok := s.audio.Active(); ok {
		snap.Active = c.Kind
	}
	return snap
}

// Unlock plays a muted empty clip on the first page click so later
// playback passes the browser autoplay policy. Only the first call acts.
func (s *Sequencer) Unlock() []Command {
	if s.unlocked {
		return nil
	}
	s.unlocked = true
	return []Command{playCmd(Clip{Kind: ClipUnlock, URL: s.cfg.UnlockURL, Muted: true})}
}

// Search starts the intro for a new query. Geocoding waits for the intro to
// finish; see ClipEnded.
func (s *Sequencer) Search(input string) []Command {
	q := strings.TrimSpace(input)
	if q == "" {
		return []Command{statusCmd(StatusEnterCity)}
	}

	s.query = q
	s.state = StatePlayingIntro
	cmds := s.play(Clip{Kind: ClipIntro, URL: s.cfg.IntroURL, Volume: s.cfg.CueVolume})

	s.log.Debug().Str("query", q).Msg("search: intro started")
	return append(cmds, statusCmd(StatusIntro))
}

// ClipEnded handles natural completion of kind. Events for a clip that is no
// longer the active one are ignored.
func (s *Sequencer) ClipEnded(ctx context.Context, kind ClipKind) []Command {
	if !s.audio.Finished(kind) {
		s.log.Debug().Str("clip", string(kind)).Msg("ignoring stale ended event")
		return nil
	}

	switch {
	case kind == ClipIntro && s.state == StatePlayingIntro:
		return s.navigate(ctx)
	case kind == ClipArrival && s.state == StatePlayingArrival:
		s.state = StateIdle
		return []Command{statusCmd(StatusReadyToPlay)}
	case kind == ClipAmbience:
		s.ambience = AmbienceStopped
	}
	return nil
}

func (s *Sequencer) navigate(ctx context.Context) []Command {
	s.state = StateNavigating
	cmds := []Command{statusCmd(fmt.Sprintf(statusLookingUpFmt, s.query))}

	place, err := s.geo.Lookup(ctx, s.query)
	if err != nil {
		s.state = StateIdle
		s.listen = false
		msg := StatusUnreachable
		if errors.Is(err, geocode.ErrNotFound) {
			msg = fmt.Sprintf(statusNotFoundFmt, s.query)
		}
		s.log.Warn().Err(err).Str("query", s.query).Msg("geocode failed")
		return append(cmds, listenCmd(false), statusCmd(msg))
	}

	cmds = append(cmds, s.mapc.Focus(place, s.query)...)
	s.listen = true

	s.state = StatePlayingArrival
	cmds = append(cmds, s.play(Clip{Kind: ClipArrival, URL: s.cfg.ArrivalURL, Volume: s.cfg.ArrivalVolume})...)

	s.log.Info().
		Str("query", s.query).
		Str("city", s.mapc.CityKey()).
		Float64("lat", place.Latitude).
		Float64("lon", place.Longitude).
		Msg("navigated")
	return append(cmds, statusCmd(fmt.Sprintf(statusArrivedFmt, place.DisplayName)))
}

// PlaybackFailed reports a rejected play() (usually autoplay policy). The
// state is left as-is; the sequence waits for the next user action.
func (s *Sequencer) PlaybackFailed(kind ClipKind, reason string) []Command {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	s.log.Warn().Str("clip", string(kind)).Str("reason", reason).Str("state", string(s.state)).Msg("playback failed")
	return []Command{statusCmd(fmt.Sprintf(statusBlockedFmt, reason))}
}

// ToggleAmbience starts the looping clip for the current city, or stops and
// rewinds it when it is already playing. Starting needs Listen enabled.
// Unmapped cities get the default URL.
func (s *Sequencer) ToggleAmbience() []Command {
	city := s.mapc.CityKey()
	if city == "" {
		return []Command{statusCmd(StatusSearchFirst)}
	}

	if s.ambience == AmbiencePlaying && s.audio.IsActive(ClipAmbience) {
		s.ambience = AmbienceStopped
		return append(s.audio.Stop(), statusCmd(StatusAmbienceOff))
	}
	// a failed lookup disables Listen until the next successful one
	if !s.listen {
		return []Command{statusCmd(StatusSearchFirst)}
	}

	url, mapped := s.table.Resolve(city)
	if url == "" {
		return []Command{statusCmd(fmt.Sprintf(statusNoSoundFmt, city))}
	}

	cmds := s.play(Clip{Kind: ClipAmbience, URL: url, Loop: true, Volume: s.cfg.AmbienceVolume})
	s.ambience = AmbiencePlaying

	msg := fmt.Sprintf(statusAmbienceFmt, city)
	if !mapped {
		msg = fmt.Sprintf(statusDefaultFmt, city)
	}
	return append(cmds, statusCmd(msg))
}

// play starts c on the single handle. Any clip other than ambience means
// ambience is no longer playing.
func (s *Sequencer) play(c Clip) []Command {
	if c.Kind != ClipAmbience {
		s.ambience = AmbienceStopped
	}
	if s.cfg.MapURL != nil {
		c.URL = s.cfg.MapURL(c.URL)
	}
	return s.audio.Start(c)
}
