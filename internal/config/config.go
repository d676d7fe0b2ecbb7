package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Duration time.Duration

func (d Duration) ToDuration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		*d = 0
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}

	// allow: "5s", "2m", or integer seconds
	switch value.Tag {
	case "!!int":
		i, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	case "!!float":
		f, err := strconv.ParseFloat(value.Value, 64)
		if err != nil {
			return err
		}
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	case "!!str":
		if value.Value == "" {
			*d = 0
			return nil
		}
		if dur, err := time.ParseDuration(value.Value); err == nil {
			*d = Duration(dur)
			return nil
		}
		if i, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
			*d = Duration(time.Duration(i) * time.Second)
			return nil
		}
		return fmt.Errorf("invalid duration: %q", value.Value)
	default:
		if dur, err := time.ParseDuration(value.Value); err == nil {
			*d = Duration(dur)
			return nil
		}
		return fmt.Errorf("invalid duration: %q", value.Value)
	}
}

type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Server     ServerConfig     `yaml:"server"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Geocode    GeocodeConfig    `yaml:"geocode"`
	Soundscape SoundscapeConfig `yaml:"soundscape"`
	Cache      CacheConfig      `yaml:"cache"`
	Prefs      PrefsConfig      `yaml:"prefs"`
}

type ServerConfig struct {
	Bind              string   `yaml:"bind"`
	Port              int      `yaml:"port"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
}

type CatalogConfig struct {
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
}

type GeocodeConfig struct {
	BaseURL   string   `yaml:"base_url"` // Nominatim-compatible
	UserAgent string   `yaml:"user_agent"`
	Timeout   Duration `yaml:"timeout"`
}

type SoundscapeConfig struct {
	IntroURL           string `yaml:"intro_url"`
	ArrivalURL         string `yaml:"arrival_url"`
	UnlockURL          string `yaml:"unlock_url"`
	DefaultAmbienceURL string `yaml:"default_ambience_url"`

	// YAML file with per-city ambience overrides; empty uses the built-in table.
	CitiesFile string `yaml:"cities_file"`

	// Directory served at /sounds/; empty serves the clips built into the binary.
	SoundsDir string `yaml:"sounds_dir"`

	Zoom        int      `yaml:"zoom"`
	FlyDuration Duration `yaml:"fly_duration"`

	// 0..1
	CueVolume      float64 `yaml:"cue_volume"`
	ArrivalVolume  float64 `yaml:"arrival_volume"`
	AmbienceVolume float64 `yaml:"ambience_volume"`
}

type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	AudioDir string   `yaml:"audio_dir"`
	Timeout  Duration `yaml:"timeout"`
}

type PrefsConfig struct {
	DBPath string `yaml:"db_path"`
}

const (
	DefaultCatalogURL = "https://api.artic.edu/api/v1/artworks" +
		"?fields=title,artist_title,style_title,subject_titles,medium_display" +
		"&limit=100&page=1"
	DefaultGeocodeURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent  = "museatlas/1.0 (city soundscape demo)"

	DefaultIntroURL    = "/sounds/intro.wav"
	DefaultArrivalURL  = "/sounds/arrival.wav"
	DefaultAmbienceURL = "/sounds/ambience-default.wav"

	// 44-byte WAV with an empty data chunk; played muted to unlock autoplay.
	DefaultUnlockURL = "data:audio/wav;base64,UklGRiQAAABXQVZFZm10IBAAAAABAAEARKwAAIhYAQACABAAZGF0YQAAAAA="
)

func Default() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Bind:              "0.0.0.0",
			Port:              8092,
			ReadHeaderTimeout: Duration(5 * time.Second),
		},
		Catalog: CatalogConfig{
			URL:     DefaultCatalogURL,
			Timeout: Duration(15 * time.Second),
		},
		Geocode: GeocodeConfig{
			BaseURL:   DefaultGeocodeURL,
			UserAgent: DefaultUserAgent,
			Timeout:   Duration(10 * time.Second),
		},
		Soundscape: SoundscapeConfig{
			IntroURL:           DefaultIntroURL,
			ArrivalURL:         DefaultArrivalURL,
			UnlockURL:          DefaultUnlockURL,
			DefaultAmbienceURL: DefaultAmbienceURL,
			Zoom:               12,
			FlyDuration:        Duration(2 * time.Second),
			CueVolume:          0.6,
			ArrivalVolume:      0.9,
			AmbienceVolume:     0.5,
		},
		Cache: CacheConfig{
			Enabled:  true,
			AudioDir: "./cache/audio",
			Timeout:  Duration(30 * time.Second),
		},
		Prefs: PrefsConfig{
			DBPath: "./data/museatlas.sqlite3",
		},
	}
}

// Load reads path over Default. A missing file is not an error; the defaults
// are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return cfg, err
		}
	}

	applyEnv(&cfg)
	cfg.sanitize()
	return cfg, nil
}

// applyEnv lets .env / process env override the few values that differ per
// deployment.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("MUSEATLAS_PORT")); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := strings.TrimSpace(os.Getenv("MUSEATLAS_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("MUSEATLAS_GEOCODE_USER_AGENT")); v != "" {
		cfg.Geocode.UserAgent = v
	}
	if v := strings.TrimSpace(os.Getenv("MUSEATLAS_DB_PATH")); v != "" {
		cfg.Prefs.DBPath = v
	}
}

func (cfg *Config) sanitize() {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8092
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = "0.0.0.0"
	}
	if cfg.Server.ReadHeaderTimeout.ToDuration() <= 0 {
		cfg.Server.ReadHeaderTimeout = Duration(5 * time.Second)
	}

	if cfg.Catalog.URL == "" {
		cfg.Catalog.URL = DefaultCatalogURL
	}
	if cfg.Catalog.Timeout.ToDuration() <= 0 {
		cfg.Catalog.Timeout = Duration(15 * time.Second)
	}

	if cfg.Geocode.BaseURL == "" {
		cfg.Geocode.BaseURL = DefaultGeocodeURL
	}
	cfg.Geocode.BaseURL = strings.TrimRight(cfg.Geocode.BaseURL, "/")
	if cfg.Geocode.UserAgent == "" {
		cfg.Geocode.UserAgent = DefaultUserAgent
	}
	if cfg.Geocode.Timeout.ToDuration() <= 0 {
		cfg.Geocode.Timeout = Duration(10 * time.Second)
	}

	sc := &cfg.Soundscape
	if sc.IntroURL == "" {
		sc.IntroURL = DefaultIntroURL
	}
	if sc.ArrivalURL == "" {
		sc.ArrivalURL = DefaultArrivalURL
	}
	if sc.UnlockURL == "" {
		sc.UnlockURL = DefaultUnlockURL
	}
	if sc.DefaultAmbienceURL == "" {
		sc.DefaultAmbienceURL = DefaultAmbienceURL
	}
	if sc.Zoom <= 0 || sc.Zoom > 19 {
		sc.Zoom = 12
	}
	if sc.FlyDuration.ToDuration() <= 0 {
		sc.FlyDuration = Duration(2 * time.Second)
	}
	sc.CueVolume = clampVolume(sc.CueVolume, 0.6)
	sc.ArrivalVolume = clampVolume(sc.ArrivalVolume, 0.9)
	sc.AmbienceVolume = clampVolume(sc.AmbienceVolume, 0.5)

	if cfg.Cache.AudioDir == "" {
		cfg.Cache.AudioDir = "./cache/audio"
	}
	if cfg.Cache.Timeout.ToDuration() <= 0 {
		cfg.Cache.Timeout = Duration(30 * time.Second)
	}
	if cfg.Prefs.DBPath == "" {
		cfg.Prefs.DBPath = "./data/museatlas.sqlite3"
	}
}

// clampVolume maps 0 (unset) to def and keeps everything else inside 0..1.
func clampVolume(v, def float64) float64 {
	if v == 0 {
		return def
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
