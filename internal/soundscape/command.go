package soundscape

// CommandType names a side effect the page adapter must perform.
type CommandType string

const (
	CmdPlay   CommandType = "play"
	CmdStop   CommandType = "stop" // pause and rewind
	CmdFocus  CommandType = "focus_map"
	CmdStatus CommandType = "status"
	CmdListen CommandType = "listen" // enable/disable the ambience toggle
)

// Command is one side effect. Exactly one of the payload fields is set,
// matching Type.
type Command struct {
	Type   CommandType `json:"type"`
	Clip   *Clip       `json:"clip,omitempty"`
	Focus  *Focus      `json:"focus,omitempty"`
	Status string      `json:"status,omitempty"`
	Listen *bool       `json:"listen,omitempty"`
}

// Focus flies the map and replaces the marker.
type Focus struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Zoom        int     `json:"zoom"`
	DurationSec float64 `json:"duration_sec"`
	Popup       string  `json:"popup"`
}

func playCmd(c Clip) Command { return Command{Type: CmdPlay, Clip: &c} }

func stopCmd(c Clip) Command { return Command{Type: CmdStop, Clip: &c} }

func statusCmd(msg string) Command { return Command{Type: CmdStatus, Status: msg} }

func listenCmd(enabled bool) Command { return Command{Type: CmdListen, Listen: &enabled} }
