package main

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"museatlas/internal/cities"
	"museatlas/internal/clipcache"
	"museatlas/internal/config"
	"museatlas/internal/geocode"
	"museatlas/internal/prefs"
	"museatlas/internal/server"
	"museatlas/internal/soundscape"
	"museatlas/internal/titles"
	"museatlas/internal/wordpool"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web UI",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	table, err := loadCities(cfg.Soundscape)
	if err != nil {
		return err
	}

	store, err := prefs.Open(cfg.Prefs.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	geo := geocode.NewClient(geocode.Config{
		BaseURL:   cfg.Geocode.BaseURL,
		UserAgent: cfg.Geocode.UserAgent,
		Timeout:   cfg.Geocode.Timeout.ToDuration(),
	}, log.Logger)

	pools := wordpool.NewStore(wordpool.NewLoader(wordpool.Config{
		URL:     cfg.Catalog.URL,
		Timeout: cfg.Catalog.Timeout.ToDuration(),
	}, log.Logger))

	sc := cfg.Soundscape
	seqCfg := soundscape.Config{
		IntroURL:       sc.IntroURL,
		ArrivalURL:     sc.ArrivalURL,
		UnlockURL:      sc.UnlockURL,
		CueVolume:      sc.CueVolume,
		ArrivalVolume:  sc.ArrivalVolume,
		AmbienceVolume: sc.AmbienceVolume,
		Map: soundscape.MapConfig{
			Zoom:        sc.Zoom,
			FlyDuration: sc.FlyDuration.ToDuration(),
		},
	}

	// Remote clips are mirrored into the audio dir so the page plays them
	// same-origin.
	if cfg.Cache.Enabled {
		cache, err := clipcache.New(clipcache.Config{
			Dir:     cfg.Cache.AudioDir,
			Timeout: cfg.Cache.Timeout.ToDuration(),
		}, log.Logger)
		if err != nil {
			return err
		}
		urls := append([]string{sc.IntroURL, sc.ArrivalURL}, table.URLs()...)
		n := cache.Warm(ctx, urls)
		log.Info().Int("cached", n).Msg("clip cache warmed")
		seqCfg.MapURL = cache.Local
	}

	srv := server.New(server.Config{
		Bind:              cfg.Server.Bind,
		Port:              cfg.Server.Port,
		AudioDir:          cfg.Cache.AudioDir,
		SoundsDir:         sc.SoundsDir,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.ToDuration(),
	}, server.Deps{
		Pools:    pools,
		Composer: titles.NewComposer(nil),
		Prefs:    store,
		NewSequencer: func() *soundscape.Sequencer {
			return soundscape.NewSequencer(seqCfg, geo, table, log.Logger)
		},
	}, log.Logger)

	log.Info().
		Int("cities", len(table.Cities)).
		Str("addr", srv.Addr()).
		Msg("running. Open the UI in your browser")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error {
		p := pools.Reload(gctx)
		log.Info().
			Bool("degraded", p.Degraded).
			Int("descriptors", len(p.Descriptors)).
			Int("subjects", len(p.Subjects)).
			Msg("word pools loaded")
		return nil
	})

	err = g.Wait()
	log.Info().Msg("shutting down")
	return err
}

func loadCities(sc config.SoundscapeConfig) (*cities.Table, error) {
	if sc.CitiesFile == "" {
		return cities.Builtin(sc.DefaultAmbienceURL), nil
	}
	return cities.Load(sc.CitiesFile, sc.DefaultAmbienceURL)
}
