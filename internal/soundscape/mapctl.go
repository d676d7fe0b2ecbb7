package soundscape

import (
	"strings"
	"time"

	"museatlas/internal/cities"
	"museatlas/internal/geocode"
)

type MapConfig struct {
	Zoom        int
	FlyDuration time.Duration
}

// MapController tracks the marker and the city key the ambience toggle uses.
type MapController struct {
	cfg     MapConfig
	marker  *geocode.Place
	cityKey string
}

func NewMapController(cfg MapConfig) *MapController {
	if cfg.Zoom <= 0 {
		cfg.Zoom = 12
	}
	if cfg.FlyDuration <= 0 {
		cfg.FlyDuration = 2 * time.Second
	}
	return &MapController{cfg: cfg}
}

// Focus flies to place, replaces the marker and enables the ambience toggle.
// It does not wait for the animation.
func (m *MapController) Focus(place geocode.Place, typed string) []Command {
	p := place
	m.marker = &p
	m.cityKey = EffectiveCityKey(typed, place.DisplayName)

	return []Command{
		{
			Type: CmdFocus,
			Focus: &Focus{
				Lat:         place.Latitude,
				Lon:         place.Longitude,
				Zoom:        m.cfg.Zoom,
				DurationSec: m.cfg.FlyDuration.Seconds(),
				Popup:       place.DisplayName,
			},
		},
		listenCmd(true),
	}
}

func (m *MapController) CityKey() string { return m.cityKey }

func (m *MapController) Marker() (geocode.Place, bool) {
	if m.marker == nil {
		return geocode.Place{}, false
	}
	return *m.marker, true
}

// EffectiveCityKey prefers what the user typed; the resolved display name
// ("Barcelona, Barcelonès, Catalunya, España") contributes its first part.
func EffectiveCityKey(typed, displayName string) string {
	if k := cities.Key(typed); k != "" {
		return k
	}
	first, _, _ := strings.Cut(displayName, ",")
	return cities.Key(first)
}
