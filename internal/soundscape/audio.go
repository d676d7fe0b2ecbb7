package soundscape

// ClipKind identifies which of the fixed clips (or the city ambience) is meant.
type ClipKind string

const (
	ClipUnlock   ClipKind = "unlock"
	ClipIntro    ClipKind = "intro"
	ClipArrival  ClipKind = "arrival"
	ClipAmbience ClipKind = "ambience"
)

type Clip struct {
	Kind   ClipKind `json:"kind"`
	URL    string   `json:"url"`
	Loop   bool     `json:"loop,omitempty"`
	Muted  bool     `json:"muted,omitempty"`
	Volume float64  `json:"volume"`
}

// AudioSession owns the single playback handle. Starting a clip always stops
// the previous one first; nothing is queued.
type AudioSession struct {
	active *Clip
}

func (a *AudioSession) Start(c Clip) []Command {
	cmds := a.Stop()
	a.active = &c
	return append(cmds, playCmd(c))
}

// Stop pauses and rewinds the active clip, if any.
func (a *AudioSession) Stop() []Command {
	if a.active == nil {
		return nil
	}
	c := *a.active
	a.active = nil
	return []Command{stopCmd(c)}
}

// Finished records natural completion of the active clip. It reports false
// when kind is not the active clip, i.e. the event is stale.
func (a *AudioSession) Finished(kind ClipKind) bool {
	if a.active == nil || a.active.Kind != kind {
		return false
	}
	a.active = nil
	return true
}

func (a *AudioSession) Active() (Clip, bool) {
	if a.active == nil {
		return Clip{}, false
	}
	return *a.active, true
}

func (a *AudioSession) IsActive(kind ClipKind) bool {
	return a.active != nil && a.active.Kind == kind
}
